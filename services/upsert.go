package services

import (
	"context"
	"fmt"

	"catalog-sync-service/models"
	"catalog-sync-service/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// PairResult is the outcome of applying one (item, variation) pair. Created
// and Updated both false means the pair matched an existing record and needed
// no changes, which is a legitimate idempotent no-op.
type PairResult struct {
	ProductID   string
	Created     bool
	Updated     bool
	UPCConflict bool
}

// Upserter applies catalog pairs to the local product table. Uniqueness
// conflicts are detected from the storage layer's duplicate-key errors, never
// pre-checked under a lock.
type Upserter struct {
	products repository.ProductRepository
}

func NewUpserter(products repository.ProductRepository) *Upserter {
	return &Upserter{products: products}
}

// Apply creates a new product when existing is nil, otherwise merges the
// incoming pair into the existing record non-destructively.
func (u *Upserter) Apply(ctx context.Context, existing *models.Product, item models.CatalogItem, variation *models.CatalogVariation) (PairResult, error) {
	if existing == nil {
		return u.create(ctx, item, variation)
	}
	return u.update(ctx, existing, item, variation)
}

func (u *Upserter) create(ctx context.Context, item models.CatalogItem, variation *models.CatalogVariation) (PairResult, error) {
	price, currency := pairPrice(item, variation)
	product := &models.Product{
		ID:        uuid.NewString(),
		Name:      pairName(item, variation),
		SKU:       pairSKU(item, variation),
		UPC:       pairUPC(item, variation),
		Price:     price,
		Currency:  currency,
		Origin:    models.OriginSquare,
		SyncState: models.SyncStateSynced,
	}

	if err := u.products.Create(ctx, product); err != nil {
		if repository.IsDuplicate(err) {
			// Another record owns this UPC or SKU. The creation is
			// abandoned rather than retried with a mutated key.
			zap.L().Warn("product creation abandoned on uniqueness conflict",
				zap.String("external_item_id", item.ID),
				zap.String("upc", product.UPC),
			)
			return PairResult{UPCConflict: true}, nil
		}
		return PairResult{}, fmt.Errorf("insert product: %w", err)
	}
	return PairResult{ProductID: product.ID, Created: true}, nil
}

func (u *Upserter) update(ctx context.Context, existing *models.Product, item models.CatalogItem, variation *models.CatalogVariation) (PairResult, error) {
	changes := mergeChanges(existing, item, variation)
	result := PairResult{ProductID: existing.ID}
	if len(changes) == 0 {
		return result, nil
	}

	err := u.products.UpdateFields(ctx, existing.ID, changes)
	if err != nil && repository.IsDuplicate(err) {
		// The incoming UPC collides with another record. Keep the existing
		// UPC and apply everything else; the pair is not failed.
		result.UPCConflict = true
		delete(changes, "upc")
		if len(changes) == 0 {
			return result, nil
		}
		err = u.products.UpdateFields(ctx, existing.ID, changes)
	}
	if err != nil {
		return result, fmt.Errorf("update product %s: %w", existing.ID, err)
	}
	result.Updated = true
	return result, nil
}

// mergeChanges implements the non-destructive merge policy: a field is only
// overwritten when the incoming value is non-empty and the existing value is
// absent, except that a strictly longer name replaces the current one and
// SKU/UPC follow any non-empty incoming value that differs.
func mergeChanges(existing *models.Product, item models.CatalogItem, variation *models.CatalogVariation) bson.M {
	changes := bson.M{}

	if name := pairName(item, variation); name != "" {
		if existing.Name == "" || len(name) > len(existing.Name) {
			changes["name"] = name
		}
	}
	if sku := pairSKU(item, variation); sku != "" && sku != existing.SKU {
		changes["sku"] = sku
	}
	if upc := pairUPC(item, variation); upc != "" && upc != existing.UPC {
		changes["upc"] = upc
	}
	if price, currency := pairPrice(item, variation); price != nil && existing.Price == nil {
		changes["price"] = *price
		if currency != "" && existing.Currency == "" {
			changes["currency"] = currency
		}
	}

	return changes
}
