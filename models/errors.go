package models

// SyncErrorCode classifies entries in a run's error ledger.
type SyncErrorCode string

const (
	// Fatal: missing/invalid token or environment, aborts the run.
	ErrCodeCredentials SyncErrorCode = "CREDENTIALS"
	// Fatal: the pre-paging identity probe failed.
	ErrCodeCatalogAccess SyncErrorCode = "CATALOG_ACCESS"
	// Fatal: a page could not be retrieved.
	ErrCodeFetchFailed SyncErrorCode = "FETCH_FAILED"
	// Per-pair failures; processing continues with the next pair.
	ErrCodeItemUpsertFailed      SyncErrorCode = "ITEM_UPSERT_FAILED"
	ErrCodeVariationUpsertFailed SyncErrorCode = "VARIATION_UPSERT_FAILED"
	// Handled inline by the upsert engine; not fatal.
	ErrCodeUPCConflict SyncErrorCode = "UPC_CONFLICT"
	// Sentinel written once when the error ledger cap is hit.
	ErrCodeErrorCapReached SyncErrorCode = "ERROR_CAP_REACHED"
)
