package providers

import (
	"context"
	"fmt"

	"catalog-sync-service/models"
)

// CatalogProvider abstracts the external catalog API. Both page strategies
// return a uniform page; an empty cursor in the result signals exhaustion.
type CatalogProvider interface {
	// Whoami verifies credentials and catalog reachability before paging.
	Whoami(ctx context.Context) error

	// ListPage bulk-retrieves a page of mixed parent/child records and
	// returns the child records in Related.
	ListPage(ctx context.Context, cursor string) (*models.CatalogPage, error)

	// SearchPage retrieves only parent records; Related is left empty and
	// variations are fetched separately via BatchRetrieve.
	SearchPage(ctx context.Context, cursor string) (*models.CatalogPage, error)

	// BatchRetrieve fetches variations by external ID, at most MaxBatchSize
	// per call.
	BatchRetrieve(ctx context.Context, ids []string) ([]models.CatalogVariation, error)
}

// ErrorKind classifies non-retryable provider failures.
type ErrorKind string

const (
	KindAuth         ErrorKind = "auth_failed"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindNotSupported ErrorKind = "not_supported"
	KindGeneric      ErrorKind = "generic"
)

// APIError is a classified, non-retryable provider response. The raw body is
// kept for the run's error ledger.
type APIError struct {
	StatusCode int
	Kind       ErrorKind
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API error (%s, status %d): %s", e.Kind, e.StatusCode, e.Body)
}

func classifyStatus(status int, body []byte) *APIError {
	kind := KindGeneric
	switch status {
	case 401:
		kind = KindAuth
	case 403:
		kind = KindForbidden
	case 404:
		kind = KindNotFound
	case 405, 501:
		kind = KindNotSupported
	}
	return &APIError{StatusCode: status, Kind: kind, Body: string(body)}
}
