package models

import "time"

// Catalog retrieval strategies, selected per integration.
const (
	CatalogModeList   = "list"
	CatalogModeSearch = "search"
)

const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// Integration is one connected external catalog account.
type Integration struct {
	ID          string `json:"id" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Source      string `json:"source" bson:"source"`
	Environment string `json:"environment" bson:"environment"`
	CatalogMode string `json:"catalog_mode" bson:"catalog_mode"`

	// AccessTokenEnc is base64 AES-GCM ciphertext of the provider access
	// token. Ignored when credentials are resolved from Secrets Manager.
	AccessTokenEnc string `json:"-" bson:"access_token_enc,omitempty"`

	LastSyncError string     `json:"last_sync_error,omitempty" bson:"last_sync_error,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty" bson:"last_synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}
