package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	MongoClient *mongo.Client
	DB          *mongo.Database
)

// ConnectWithConfig connects to MongoDB using the provided URI and database name.
func ConnectWithConfig(mongoURL, dbName string) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURL)

	client, err := mongo.Connect(timeoutCtx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(timeoutCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	MongoClient = client
	DB = client.Database(dbName)
	log.Println("✅ Successfully connected to MongoDB!")
	return nil
}

// EnsureIndexes creates the unique indexes the sync engine relies on for
// conflict detection. SKU/UPC uniqueness applies only where the field is set
// on an active (non-deleted) record, so a soft-deleted product never blocks
// re-creation. The external link key is unique per integration.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	products := db.Collection("products")
	_, err := products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().
				SetName("uniq_sku").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"sku":        bson.M{"$type": "string"},
					"deleted_at": bson.M{"$exists": false},
				}),
		},
		{
			Keys: bson.D{{Key: "upc", Value: 1}},
			Options: options.Index().
				SetName("uniq_upc").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"upc":        bson.M{"$type": "string"},
					"deleted_at": bson.M{"$exists": false},
				}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}

	links := db.Collection("external_links")
	_, err = links.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "integration_id", Value: 1},
			{Key: "source", Value: 1},
			{Key: "external_item_id", Value: 1},
			{Key: "external_variation_id", Value: 1},
		},
		Options: options.Index().SetName("uniq_external_key").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create external link index: %w", err)
	}

	runs := db.Collection("import_runs")
	_, err = runs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "integration_id", Value: 1}, {Key: "started_at", Value: -1}},
		Options: options.Index().SetName("runs_by_integration"),
	})
	if err != nil {
		return fmt.Errorf("failed to create import run index: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB
func Close() error {
	disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer disconnectCancel()

	if err := MongoClient.Disconnect(disconnectCtx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	log.Println("✅ Disconnected from MongoDB")
	return nil
}
