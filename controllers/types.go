package controllers

import (
	"context"
	"time"

	"catalog-sync-service/models"
)

// DefaultContextTimeout bounds admission and read requests; run execution
// itself happens on the worker, not in request handlers.
const DefaultContextTimeout = 10 * time.Second

// SyncServiceAPI is the trigger boundary the controller depends on.
type SyncServiceAPI interface {
	Start(ctx context.Context, integrationID string) (*models.ImportRun, error)
	Resume(ctx context.Context, runID string) (*models.ImportRun, error)
	GetRun(ctx context.Context, runID string) (*models.ImportRun, error)
	ListRuns(ctx context.Context, integrationID string, limit int64) ([]models.ImportRun, error)
}
