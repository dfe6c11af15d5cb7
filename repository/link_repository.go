package repository

import (
	"context"
	"time"

	"catalog-sync-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// linkCollection is the slice of *mongo.Collection the repository needs.
type linkCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type MongoLinkRepository struct {
	collection linkCollection
}

func NewLinkRepository(db *mongo.Database) *MongoLinkRepository {
	return &MongoLinkRepository{
		collection: db.Collection("external_links"),
	}
}

func (r *MongoLinkRepository) Find(ctx context.Context, integrationID, source, externalItemID, externalVariationID string) (*models.ExternalLink, error) {
	filter := bson.M{
		"integration_id":        integrationID,
		"source":                source,
		"external_item_id":      externalItemID,
		"external_variation_id": externalVariationID,
	}
	var link models.ExternalLink
	err := r.collection.FindOne(ctx, filter).Decode(&link)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// EnsureLink inserts the link. A duplicate key means the association already
// exists, which is the desired end state, so it is treated as success.
func (r *MongoLinkRepository) EnsureLink(ctx context.Context, link *models.ExternalLink) error {
	link.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, link)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			zap.L().Debug("external link already present",
				zap.String("integration_id", link.IntegrationID),
				zap.String("external_item_id", link.ExternalItemID),
				zap.String("external_variation_id", link.ExternalVariationID),
			)
			return nil
		}
		return err
	}
	return nil
}
