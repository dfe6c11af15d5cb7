package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"catalog-sync-service/models"

	"go.uber.org/zap"
)

const (
	squareProductionURL = "https://connect.squareup.com"
	squareSandboxURL    = "https://connect.squareupsandbox.com"
	squareAPIVersion    = "2024-01-18"

	// PageSize is the fixed page size requested from the catalog API.
	PageSize = 100
	// MaxBatchSize bounds one batched variation retrieval.
	MaxBatchSize = 100

	backoffBase = 1 * time.Second
	backoffCap  = 8 * time.Second
)

// SquareProvider talks to the Square catalog API. Rate limits (429) and
// server errors (5xx) are retried with exponential delay for as long as the
// request context allows; there is no retry counter.
type SquareProvider struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewSquareProvider selects the base URL from the integration's environment
// tag. Anything other than "sandbox" targets production.
func NewSquareProvider(accessToken, environment string) *SquareProvider {
	baseURL := squareProductionURL
	if environment == models.EnvironmentSandbox {
		baseURL = squareSandboxURL
	}
	return &SquareProvider{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ---- wire shapes ----

type squareMoney struct {
	Amount   *int64 `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type squareItemData struct {
	Name       string          `json:"name"`
	SKU        string          `json:"sku,omitempty"`
	UPC        string          `json:"upc,omitempty"`
	PriceMoney *squareMoney    `json:"price_money,omitempty"`
	Variations []*squareObject `json:"variations,omitempty"`
}

type squareVariationData struct {
	ItemID     string       `json:"item_id"`
	Name       string       `json:"name,omitempty"`
	SKU        string       `json:"sku,omitempty"`
	UPC        string       `json:"upc,omitempty"`
	PriceMoney *squareMoney `json:"price_money,omitempty"`
}

type squareObject struct {
	Type              string               `json:"type"`
	ID                string               `json:"id"`
	ItemData          *squareItemData      `json:"item_data,omitempty"`
	ItemVariationData *squareVariationData `json:"item_variation_data,omitempty"`
}

type squareListResponse struct {
	Objects []*squareObject `json:"objects"`
	Cursor  string          `json:"cursor"`
}

type squareSearchRequest struct {
	ObjectTypes []string `json:"object_types"`
	Cursor      string   `json:"cursor,omitempty"`
	Limit       int      `json:"limit"`
}

type squareBatchRetrieveRequest struct {
	ObjectIDs []string `json:"object_ids"`
}

type squareBatchRetrieveResponse struct {
	Objects []*squareObject `json:"objects"`
}

// ---- CatalogProvider implementation ----

func (p *SquareProvider) Whoami(ctx context.Context) error {
	if err := p.doRequest(ctx, http.MethodGet, "/v2/merchants/me", nil, nil); err != nil {
		return fmt.Errorf("square identity check: %w", err)
	}
	return nil
}

func (p *SquareProvider) ListPage(ctx context.Context, cursor string) (*models.CatalogPage, error) {
	path := fmt.Sprintf("/v2/catalog/list?types=ITEM,ITEM_VARIATION&limit=%d", PageSize)
	if cursor != "" {
		path += "&cursor=" + cursor
	}

	var resp squareListResponse
	if err := p.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("square list catalog: %w", err)
	}

	page := &models.CatalogPage{Cursor: resp.Cursor}
	seen := make(map[string]bool)
	addRelated := func(obj *squareObject) {
		if v, ok := toCatalogVariation(obj); ok && !seen[v.ID] {
			seen[v.ID] = true
			page.Related = append(page.Related, v)
		}
	}
	for _, obj := range resp.Objects {
		switch obj.Type {
		case "ITEM":
			page.Items = append(page.Items, toCatalogItem(obj))
			// Variations embedded under the item count as related records
			// too; top-level copies of the same object are skipped.
			if obj.ItemData != nil {
				for _, nested := range obj.ItemData.Variations {
					addRelated(nested)
				}
			}
		case "ITEM_VARIATION":
			addRelated(obj)
		}
	}
	return page, nil
}

func (p *SquareProvider) SearchPage(ctx context.Context, cursor string) (*models.CatalogPage, error) {
	req := squareSearchRequest{
		ObjectTypes: []string{"ITEM"},
		Cursor:      cursor,
		Limit:       PageSize,
	}

	var resp squareListResponse
	if err := p.doRequest(ctx, http.MethodPost, "/v2/catalog/search", req, &resp); err != nil {
		return nil, fmt.Errorf("square search catalog: %w", err)
	}

	page := &models.CatalogPage{Cursor: resp.Cursor}
	for _, obj := range resp.Objects {
		if obj.Type == "ITEM" {
			page.Items = append(page.Items, toCatalogItem(obj))
		}
	}
	return page, nil
}

func (p *SquareProvider) BatchRetrieve(ctx context.Context, ids []string) ([]models.CatalogVariation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("batch retrieve limited to %d ids, got %d", MaxBatchSize, len(ids))
	}

	var resp squareBatchRetrieveResponse
	if err := p.doRequest(ctx, http.MethodPost, "/v2/catalog/batch-retrieve", squareBatchRetrieveRequest{ObjectIDs: ids}, &resp); err != nil {
		return nil, fmt.Errorf("square batch retrieve: %w", err)
	}

	variations := make([]models.CatalogVariation, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		if v, ok := toCatalogVariation(obj); ok {
			variations = append(variations, v)
		}
	}
	return variations, nil
}

// ---- HTTP helper with backoff ----

func (p *SquareProvider) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}

	delay := backoffBase
	for {
		// The scheduler's time budget bounds this loop via ctx, not a
		// retry counter.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("catalog request %s %s: %w", method, path, err)
		}

		status, respBody, err := p.once(ctx, method, path, payload)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests || status >= 500 {
			zap.L().Warn("catalog API throttled, backing off",
				zap.Int("status", status),
				zap.String("path", path),
				zap.Duration("delay", delay),
			)
			time.Sleep(delay)
			if delay *= 2; delay > backoffCap {
				delay = backoffCap
			}
			continue
		}

		if status < 200 || status >= 300 {
			return classifyStatus(status, respBody)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
}

func (p *SquareProvider) once(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.accessToken)
	req.Header.Set("Square-Version", squareAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBytes, nil
}

// ---- conversion helpers ----

func toCatalogItem(obj *squareObject) models.CatalogItem {
	item := models.CatalogItem{ID: obj.ID}
	if d := obj.ItemData; d != nil {
		item.Name = d.Name
		item.SKU = d.SKU
		item.UPC = d.UPC
		if d.PriceMoney != nil {
			item.Price = d.PriceMoney.Amount
			item.Currency = d.PriceMoney.Currency
		}
		for _, v := range d.Variations {
			if v != nil && v.ID != "" {
				item.VariationIDs = append(item.VariationIDs, v.ID)
			}
		}
	}
	return item
}

func toCatalogVariation(obj *squareObject) (models.CatalogVariation, bool) {
	if obj == nil || obj.ItemVariationData == nil {
		return models.CatalogVariation{}, false
	}
	d := obj.ItemVariationData
	v := models.CatalogVariation{
		ID:     obj.ID,
		ItemID: d.ItemID,
		Name:   d.Name,
		SKU:    d.SKU,
		UPC:    d.UPC,
	}
	if d.PriceMoney != nil {
		v.Price = d.PriceMoney.Amount
		v.Currency = d.PriceMoney.Currency
	}
	return v, true
}
