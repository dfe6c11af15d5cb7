package services_test

import (
	"context"
	"testing"

	"catalog-sync-service/models"
	"catalog-sync-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, repo *memProductRepo, p models.Product) *models.Product {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &p))
	return &p
}

func TestMatcher_ExternalLinkWinsOverUPC(t *testing.T) {
	products := newMemProductRepo()
	links := newMemLinkRepo()

	linked := seedProduct(t, products, models.Product{ID: "p-linked", Name: "Linked", UPC: "111"})
	seedProduct(t, products, models.Product{ID: "p-upc", Name: "By UPC", UPC: "222"})

	require.NoError(t, links.EnsureLink(context.Background(), &models.ExternalLink{
		IntegrationID:  "int-1",
		Source:         "square",
		ExternalItemID: "item-1",
		ProductID:      linked.ID,
	}))

	matcher := services.NewMatcher(products, links)

	// The item's UPC points at a different record, but the established link
	// takes precedence.
	item := models.CatalogItem{ID: "item-1", Name: "Widget", UPC: "222"}
	got, err := matcher.Match(context.Background(), "int-1", "square", item, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p-linked", got.ID)
}

func TestMatcher_UPCBeforeSKU(t *testing.T) {
	products := newMemProductRepo()
	links := newMemLinkRepo()

	seedProduct(t, products, models.Product{ID: "p-upc", Name: "By UPC", UPC: "333"})
	seedProduct(t, products, models.Product{ID: "p-sku", Name: "By SKU", SKU: "SKU-1"})

	matcher := services.NewMatcher(products, links)

	item := models.CatalogItem{ID: "item-2", Name: "Widget", UPC: "333", SKU: "SKU-1"}
	got, err := matcher.Match(context.Background(), "int-1", "square", item, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p-upc", got.ID)
}

func TestMatcher_SKUFallback(t *testing.T) {
	products := newMemProductRepo()
	links := newMemLinkRepo()

	seedProduct(t, products, models.Product{ID: "p-sku", Name: "By SKU", SKU: "SKU-9"})

	matcher := services.NewMatcher(products, links)

	item := models.CatalogItem{ID: "item-3", Name: "Widget", SKU: "SKU-9"}
	got, err := matcher.Match(context.Background(), "int-1", "square", item, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p-sku", got.ID)
}

func TestMatcher_VariationKeysWinOverItemKeys(t *testing.T) {
	products := newMemProductRepo()
	links := newMemLinkRepo()

	seedProduct(t, products, models.Product{ID: "p-var", Name: "Variation UPC", UPC: "999"})
	seedProduct(t, products, models.Product{ID: "p-item", Name: "Item UPC", UPC: "888"})

	matcher := services.NewMatcher(products, links)

	item := models.CatalogItem{ID: "item-4", UPC: "888"}
	variation := &models.CatalogVariation{ID: "var-1", ItemID: "item-4", UPC: "999"}
	got, err := matcher.Match(context.Background(), "int-1", "square", item, variation)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p-var", got.ID)
}

func TestMatcher_BlankKeysNeverMatch(t *testing.T) {
	products := newMemProductRepo()
	links := newMemLinkRepo()

	// A local record that slipped in with empty-string keys must not collide
	// with incoming blanks.
	products.products["p-blank"] = &models.Product{ID: "p-blank", Name: "Blank"}

	matcher := services.NewMatcher(products, links)

	item := models.CatalogItem{ID: "item-5", Name: "Widget", SKU: "   ", UPC: ""}
	got, err := matcher.Match(context.Background(), "int-1", "square", item, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatcher_NoMatchMeansNew(t *testing.T) {
	matcher := services.NewMatcher(newMemProductRepo(), newMemLinkRepo())

	item := models.CatalogItem{ID: "item-6", Name: "Brand New", SKU: "NEW-1", UPC: "444"}
	got, err := matcher.Match(context.Background(), "int-1", "square", item, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
