package models

// Provider-side catalog records, as returned by the page fetcher. These are
// already normalized from the provider's wire shapes.

type CatalogItem struct {
	ID       string
	Name     string
	SKU      string
	UPC      string
	Price    *int64 // minor units
	Currency string
	// VariationIDs references child records when the page did not embed them
	// (search strategy); the variation resolver retrieves them in batches.
	VariationIDs []string
}

type CatalogVariation struct {
	ID       string
	ItemID   string
	Name     string
	SKU      string
	UPC      string
	Price    *int64
	Currency string
}

// CatalogPage is one page of provider records. Related carries variations the
// listing strategy extracted alongside the items; the search strategy leaves
// it empty. An empty Cursor means the catalog is exhausted.
type CatalogPage struct {
	Items   []CatalogItem
	Related []CatalogVariation
	Cursor  string
}
