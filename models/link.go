package models

import "time"

// ExternalLink ties a local product to a provider-side (item, variation)
// compound key, scoped per integration. The variation ID is empty for
// item-level links. Unique per (integration, source, item, variation);
// inserting a duplicate is a no-op.
type ExternalLink struct {
	IntegrationID       string    `json:"integration_id" bson:"integration_id"`
	Source              string    `json:"source" bson:"source"`
	ExternalItemID      string    `json:"external_item_id" bson:"external_item_id"`
	ExternalVariationID string    `json:"external_variation_id" bson:"external_variation_id"`
	ProductID           string    `json:"product_id" bson:"product_id"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at"`
}
