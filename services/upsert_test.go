package services_test

import (
	"context"
	"testing"

	"catalog-sync-service/models"
	"catalog-sync-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestUpserter_CreateNewProduct(t *testing.T) {
	products := newMemProductRepo()
	upserter := services.NewUpserter(products)

	item := models.CatalogItem{ID: "item-1", Name: "Widget"}
	variation := &models.CatalogVariation{ID: "var-1", ItemID: "item-1", SKU: "W-1", UPC: "100", Price: int64Ptr(1250), Currency: "USD"}

	result, err := upserter.Apply(context.Background(), nil, item, variation)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.Updated)
	require.NotEmpty(t, result.ProductID)

	created, err := products.FindByID(context.Background(), result.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, "W-1", created.SKU)
	assert.Equal(t, "100", created.UPC)
	require.NotNil(t, created.Price)
	assert.Equal(t, int64(1250), *created.Price)
	assert.Equal(t, models.OriginSquare, created.Origin)
	assert.Equal(t, models.SyncStateSynced, created.SyncState)
}

func TestUpserter_CreateAbandonedOnUPCConflict(t *testing.T) {
	products := newMemProductRepo()
	seedProduct(t, products, models.Product{ID: "p-owner", Name: "Owner", UPC: "500"})
	upserter := services.NewUpserter(products)

	item := models.CatalogItem{ID: "item-2", Name: "Clone", UPC: "500"}
	result, err := upserter.Apply(context.Background(), nil, item, nil)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.True(t, result.UPCConflict)
	assert.Empty(t, result.ProductID)
	assert.Equal(t, 1, products.count())
}

func TestUpserter_NonDestructiveMerge(t *testing.T) {
	tests := []struct {
		name         string
		existing     models.Product
		item         models.CatalogItem
		wantUpdated  bool
		wantName     string
	}{
		{
			name:        "equal length name is preserved",
			existing:    models.Product{ID: "p1", Name: "Widget"},
			item:        models.CatalogItem{ID: "i1", Name: "Gidget"},
			wantUpdated: false,
			wantName:    "Widget",
		},
		{
			name:        "longer name wins",
			existing:    models.Product{ID: "p2", Name: "Widget"},
			item:        models.CatalogItem{ID: "i2", Name: "Premium Widget"},
			wantUpdated: true,
			wantName:    "Premium Widget",
		},
		{
			name:        "shorter name is ignored",
			existing:    models.Product{ID: "p3", Name: "Premium Widget"},
			item:        models.CatalogItem{ID: "i3", Name: "Widget"},
			wantUpdated: false,
			wantName:    "Premium Widget",
		},
		{
			name:        "empty existing name is filled",
			existing:    models.Product{ID: "p4"},
			item:        models.CatalogItem{ID: "i4", Name: "Widget"},
			wantUpdated: true,
			wantName:    "Widget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := newMemProductRepo()
			existing := seedProduct(t, products, tt.existing)
			upserter := services.NewUpserter(products)

			result, err := upserter.Apply(context.Background(), existing, tt.item, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUpdated, result.Updated)
			assert.False(t, result.Created)

			got, err := products.FindByID(context.Background(), existing.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Name)
		})
	}
}

func TestUpserter_PriceFilledOnlyWhenAbsent(t *testing.T) {
	products := newMemProductRepo()
	existing := seedProduct(t, products, models.Product{ID: "p-price", Name: "Widget", Price: int64Ptr(999), Currency: "USD"})
	upserter := services.NewUpserter(products)

	item := models.CatalogItem{ID: "i-price", Name: "Widget", Price: int64Ptr(1500), Currency: "EUR"}
	result, err := upserter.Apply(context.Background(), existing, item, nil)
	require.NoError(t, err)
	assert.False(t, result.Updated)

	got, err := products.FindByID(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(999), *got.Price)
	assert.Equal(t, "USD", got.Currency)
}

func TestUpserter_UpdateRetriesWithoutUPCOnConflict(t *testing.T) {
	products := newMemProductRepo()
	seedProduct(t, products, models.Product{ID: "p-b", Name: "Other", UPC: "777"})
	recordA := seedProduct(t, products, models.Product{ID: "p-a", Name: "Widget", UPC: "123"})
	upserter := services.NewUpserter(products)

	// Incoming pair carries B's UPC plus a richer name and a price.
	item := models.CatalogItem{ID: "i-a", Name: "Premium Widget", UPC: "777", Price: int64Ptr(2000), Currency: "USD"}
	result, err := upserter.Apply(context.Background(), recordA, item, nil)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.True(t, result.UPCConflict)

	got, err := products.FindByID(context.Background(), recordA.ID)
	require.NoError(t, err)
	assert.Equal(t, "123", got.UPC, "A's UPC must survive the conflict")
	assert.Equal(t, "Premium Widget", got.Name)
	require.NotNil(t, got.Price)
	assert.Equal(t, int64(2000), *got.Price)
}

func TestUpserter_NoChangesIsIdempotentNoOp(t *testing.T) {
	products := newMemProductRepo()
	existing := seedProduct(t, products, models.Product{ID: "p-same", Name: "Widget", SKU: "W-1", UPC: "100"})
	upserter := services.NewUpserter(products)

	item := models.CatalogItem{ID: "i-same", Name: "Widget", SKU: "W-1", UPC: "100"}
	result, err := upserter.Apply(context.Background(), existing, item, nil)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.False(t, result.Updated)
}
