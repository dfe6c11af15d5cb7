package services

import (
	"context"
	"fmt"

	"catalog-sync-service/models"
	"catalog-sync-service/providers"
)

// VariationResolver obtains the child records for a page of items, either
// from the page's embedded related records or through batched lookups, and
// groups them by parent item ID.
type VariationResolver struct {
	provider  providers.CatalogProvider
	batchSize int
}

func NewVariationResolver(provider providers.CatalogProvider) *VariationResolver {
	return &VariationResolver{provider: provider, batchSize: providers.MaxBatchSize}
}

func (r *VariationResolver) Resolve(ctx context.Context, page *models.CatalogPage) (map[string][]models.CatalogVariation, error) {
	if len(page.Related) > 0 {
		return groupByItem(page.Related), nil
	}

	var ids []string
	for _, item := range page.Items {
		ids = append(ids, item.VariationIDs...)
	}
	if len(ids) == 0 {
		return map[string][]models.CatalogVariation{}, nil
	}

	var all []models.CatalogVariation
	for start := 0; start < len(ids); start += r.batchSize {
		end := start + r.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk, err := r.provider.BatchRetrieve(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch retrieve variations: %w", err)
		}
		all = append(all, chunk...)
	}
	return groupByItem(all), nil
}

func groupByItem(variations []models.CatalogVariation) map[string][]models.CatalogVariation {
	grouped := make(map[string][]models.CatalogVariation)
	for _, v := range variations {
		if v.ItemID == "" {
			continue
		}
		grouped[v.ItemID] = append(grouped[v.ItemID], v)
	}
	return grouped
}
