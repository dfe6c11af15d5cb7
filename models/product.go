package models

import "time"

const (
	OriginSquare = "square"
	OriginManual = "manual"

	SyncStateSynced = "synced"
)

// Product is the local destination of catalog reconciliation. SKU and UPC are
// unique across active records when set; uniqueness is enforced by partial
// indexes, not application locks.
type Product struct {
	ID        string     `json:"id" bson:"_id"`
	Name      string     `json:"name" bson:"name"`
	SKU       string     `json:"sku,omitempty" bson:"sku,omitempty"`
	UPC       string     `json:"upc,omitempty" bson:"upc,omitempty"`
	Price     *int64     `json:"price,omitempty" bson:"price,omitempty"` // minor units
	Currency  string     `json:"currency,omitempty" bson:"currency,omitempty"`
	Origin    string     `json:"origin" bson:"origin"`
	SyncState string     `json:"sync_state" bson:"sync_state"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
}
