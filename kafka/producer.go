package kafka

import (
	"context"
	"encoding/json"
	"log"

	"catalog-sync-service/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[CatalogSync][KafkaProducer] initialized topic=%s brokers=%v", topic, brokers)
	return &Producer{writer: w, topic: topic}
}

// PublishRunEvent publishes a run lifecycle event keyed by run ID so events
// for one run stay ordered within a partition.
func (p *Producer) PublishRunEvent(evt models.RunEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.RunID),
		Value: data,
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("❌ [CatalogSync][KafkaProducer] failed to publish event run=%s type=%s topic=%s err=%v", evt.RunID, evt.Type, p.topic, err)
		return err
	}
	log.Printf("✅ [CatalogSync][KafkaProducer] published event run=%s type=%s status=%s topic=%s", evt.RunID, evt.Type, evt.Status, p.topic)
	return nil
}

func (p *Producer) Close() error {
	log.Printf("[CatalogSync][KafkaProducer] closing writer topic=%s", p.topic)
	return p.writer.Close()
}
