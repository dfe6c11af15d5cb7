package repository

import (
	"context"
	"time"

	"catalog-sync-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{
		collection: db.Collection("products"),
	}
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	filter := bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}}
	var product models.Product
	if err := r.collection.FindOne(ctx, filter).Decode(&product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *MongoProductRepository) FindActiveByUPC(ctx context.Context, upc string) (*models.Product, error) {
	return r.findActiveByField(ctx, "upc", upc)
}

func (r *MongoProductRepository) FindActiveBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return r.findActiveByField(ctx, "sku", sku)
}

func (r *MongoProductRepository) findActiveByField(ctx context.Context, field, value string) (*models.Product, error) {
	filter := bson.M{field: value, "deleted_at": bson.M{"$exists": false}}
	var product models.Product
	err := r.collection.FindOne(ctx, filter).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, product)
	return err
}

func (r *MongoProductRepository) UpdateFields(ctx context.Context, id string, updates bson.M) error {
	filter := bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}}
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range updates {
		set[k] = v
	}
	_, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	return err
}
