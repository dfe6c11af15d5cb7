package services

import (
	"context"
	"fmt"
	"strings"

	"catalog-sync-service/models"
	"catalog-sync-service/repository"
)

// Matcher decides whether an incoming (item, variation) pair corresponds to an
// existing local product. Precedence, first match wins:
//
//  1. external link (integration, source, item id, variation id)
//  2. UPC equality against active records
//  3. SKU equality against active records
//
// Only non-empty trimmed values participate; a blank SKU or UPC never matches
// anything.
type Matcher struct {
	products repository.ProductRepository
	links    repository.LinkRepository
}

func NewMatcher(products repository.ProductRepository, links repository.LinkRepository) *Matcher {
	return &Matcher{products: products, links: links}
}

// Match returns the matched product, or nil when the pair is new.
func (m *Matcher) Match(ctx context.Context, integrationID, source string, item models.CatalogItem, variation *models.CatalogVariation) (*models.Product, error) {
	variationID := ""
	if variation != nil {
		variationID = variation.ID
	}

	link, err := m.links.Find(ctx, integrationID, source, item.ID, variationID)
	if err != nil {
		return nil, fmt.Errorf("link lookup: %w", err)
	}
	if link != nil {
		product, err := m.products.FindByID(ctx, link.ProductID)
		if err != nil {
			if repository.IsNotFound(err) {
				// Linked product was removed locally; fall through to the
				// weaker keys.
				product = nil
			} else {
				return nil, fmt.Errorf("linked product lookup: %w", err)
			}
		}
		if product != nil {
			return product, nil
		}
	}

	if upc := pairUPC(item, variation); upc != "" {
		product, err := m.products.FindActiveByUPC(ctx, upc)
		if err != nil {
			return nil, fmt.Errorf("upc lookup: %w", err)
		}
		if product != nil {
			return product, nil
		}
	}

	if sku := pairSKU(item, variation); sku != "" {
		product, err := m.products.FindActiveBySKU(ctx, sku)
		if err != nil {
			return nil, fmt.Errorf("sku lookup: %w", err)
		}
		if product != nil {
			return product, nil
		}
	}

	return nil, nil
}

// The variation's keys win over the item's when both are present.

func pairUPC(item models.CatalogItem, variation *models.CatalogVariation) string {
	if variation != nil {
		if upc := strings.TrimSpace(variation.UPC); upc != "" {
			return upc
		}
	}
	return strings.TrimSpace(item.UPC)
}

func pairSKU(item models.CatalogItem, variation *models.CatalogVariation) string {
	if variation != nil {
		if sku := strings.TrimSpace(variation.SKU); sku != "" {
			return sku
		}
	}
	return strings.TrimSpace(item.SKU)
}

func pairName(item models.CatalogItem, variation *models.CatalogVariation) string {
	if variation != nil {
		if name := strings.TrimSpace(variation.Name); name != "" {
			return name
		}
	}
	return strings.TrimSpace(item.Name)
}

func pairPrice(item models.CatalogItem, variation *models.CatalogVariation) (*int64, string) {
	if variation != nil && variation.Price != nil {
		return variation.Price, variation.Currency
	}
	return item.Price, item.Currency
}
