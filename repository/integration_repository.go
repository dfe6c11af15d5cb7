package repository

import (
	"context"
	"time"

	"catalog-sync-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoIntegrationRepository struct {
	collection *mongo.Collection
}

func NewIntegrationRepository(db *mongo.Database) *MongoIntegrationRepository {
	return &MongoIntegrationRepository{
		collection: db.Collection("integrations"),
	}
}

func (r *MongoIntegrationRepository) FindByID(ctx context.Context, id string) (*models.Integration, error) {
	var integration models.Integration
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&integration); err != nil {
		return nil, err
	}
	return &integration, nil
}

func (r *MongoIntegrationRepository) SetLastSyncError(ctx context.Context, id, message string) error {
	update := bson.M{"$set": bson.M{
		"last_sync_error": message,
		"updated_at":      time.Now().UTC(),
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *MongoIntegrationRepository) TouchLastSyncedAt(ctx context.Context, id string) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"last_synced_at":  now,
		"last_sync_error": "",
		"updated_at":      now,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
