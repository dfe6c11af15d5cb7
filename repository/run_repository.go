package repository

import (
	"context"
	"time"

	"catalog-sync-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRunRepository struct {
	collection *mongo.Collection
}

func NewRunRepository(db *mongo.Database) *MongoRunRepository {
	return &MongoRunRepository{
		collection: db.Collection("import_runs"),
	}
}

func (r *MongoRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	_, err := r.collection.InsertOne(ctx, run)
	return err
}

func (r *MongoRunRepository) FindByID(ctx context.Context, id string) (*models.ImportRun, error) {
	var run models.ImportRun
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *MongoRunRepository) FindByIntegration(ctx context.Context, integrationID string, limit int64) ([]models.ImportRun, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"integration_id": integrationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []models.ImportRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *MongoRunRepository) FindActive(ctx context.Context, integrationID string) (*models.ImportRun, error) {
	filter := bson.M{
		"integration_id": integrationID,
		"status":         bson.M{"$in": models.NonTerminalStatuses},
	}
	var run models.ImportRun
	err := r.collection.FindOne(ctx, filter).Decode(&run)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *MongoRunRepository) UpdateStatus(ctx context.Context, id string, status models.RunStatus) error {
	update := bson.M{"$set": bson.M{
		"status":           status,
		"last_progress_at": time.Now().UTC(),
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *MongoRunRepository) UpdateProgress(ctx context.Context, run *models.ImportRun) error {
	run.LastProgressAt = time.Now().UTC()
	set := bson.M{
		"counters":         run.Counters,
		"errors":           run.Errors,
		"status":           run.Status,
		"last_progress_at": run.LastProgressAt,
	}
	update := bson.M{"$set": set}
	if run.Cursor != nil {
		set["cursor"] = *run.Cursor
	} else {
		update["$unset"] = bson.M{"cursor": ""}
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": run.ID}, update)
	return err
}

func (r *MongoRunRepository) Finish(ctx context.Context, run *models.ImportRun, status models.RunStatus) error {
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	update := bson.M{"$set": bson.M{
		"status":           status,
		"counters":         run.Counters,
		"errors":           run.Errors,
		"finished_at":      now,
		"last_progress_at": now,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": run.ID}, update)
	return err
}
