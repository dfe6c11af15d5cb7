package repository

import (
	"context"
	"errors"

	"catalog-sync-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProductRepository abstracts the local product table for the matcher and
// upsert engine. Lookups consider active (non-deleted) records only.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindActiveByUPC(ctx context.Context, upc string) (*models.Product, error)
	FindActiveBySKU(ctx context.Context, sku string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	UpdateFields(ctx context.Context, id string, updates bson.M) error
}

// RunRepository owns the persisted run ledger.
type RunRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	FindByID(ctx context.Context, id string) (*models.ImportRun, error)
	FindByIntegration(ctx context.Context, integrationID string, limit int64) ([]models.ImportRun, error)
	// FindActive returns the integration's non-terminal run, or nil.
	FindActive(ctx context.Context, integrationID string) (*models.ImportRun, error)
	UpdateStatus(ctx context.Context, id string, status models.RunStatus) error
	// UpdateProgress persists cursor, counters, error ledger and status from
	// the in-memory run after a page is processed.
	UpdateProgress(ctx context.Context, run *models.ImportRun) error
	// Finish marks the run terminal and stamps finished_at.
	Finish(ctx context.Context, run *models.ImportRun, status models.RunStatus) error
}

// LinkRepository persists external links idempotently.
type LinkRepository interface {
	Find(ctx context.Context, integrationID, source, externalItemID, externalVariationID string) (*models.ExternalLink, error)
	// EnsureLink inserts the link; an existing link is success, not an error.
	EnsureLink(ctx context.Context, link *models.ExternalLink) error
}

type IntegrationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Integration, error)
	SetLastSyncError(ctx context.Context, id, message string) error
	TouchLastSyncedAt(ctx context.Context, id string) error
}

// IsDuplicate reports whether err is a storage-level unique constraint
// violation. The sync engine relies on try-insert/catch-conflict rather than
// locks, so this is the single place conflict detection happens.
func IsDuplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsNotFound reports whether err means no document matched, including when
// the lookup error arrives wrapped by a caller.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
