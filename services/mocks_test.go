package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"catalog-sync-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func dupErr() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
}

// ---- in-memory product repository ----
//
// Enforces SKU/UPC uniqueness the way the mongo partial indexes do, so
// conflict handling is exercised against real duplicate-key semantics.

type memProductRepo struct {
	mu        sync.Mutex
	products  map[string]*models.Product
	createErr error
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[string]*models.Product)}
}

func (m *memProductRepo) FindByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.DeletedAt != nil {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	return &cp, nil
}

func (m *memProductRepo) FindActiveByUPC(_ context.Context, upc string) (*models.Product, error) {
	return m.findActive(func(p *models.Product) bool { return p.UPC == upc })
}

func (m *memProductRepo) FindActiveBySKU(_ context.Context, sku string) (*models.Product, error) {
	return m.findActive(func(p *models.Product) bool { return p.SKU == sku })
}

func (m *memProductRepo) findActive(match func(*models.Product) bool) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.DeletedAt == nil && match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memProductRepo) Create(_ context.Context, product *models.Product) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.DeletedAt != nil {
			continue
		}
		if (product.SKU != "" && p.SKU == product.SKU) || (product.UPC != "" && p.UPC == product.UPC) {
			return dupErr()
		}
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *memProductRepo) UpdateFields(_ context.Context, id string, updates bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.products[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if sku, ok := updates["sku"].(string); ok {
		if m.ownedByOther(id, func(p *models.Product) bool { return p.SKU == sku }) {
			return dupErr()
		}
	}
	if upc, ok := updates["upc"].(string); ok {
		if m.ownedByOther(id, func(p *models.Product) bool { return p.UPC == upc }) {
			return dupErr()
		}
	}
	for k, v := range updates {
		switch k {
		case "name":
			target.Name = v.(string)
		case "sku":
			target.SKU = v.(string)
		case "upc":
			target.UPC = v.(string)
		case "price":
			price := v.(int64)
			target.Price = &price
		case "currency":
			target.Currency = v.(string)
		}
	}
	target.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memProductRepo) ownedByOther(id string, match func(*models.Product) bool) bool {
	for pid, p := range m.products {
		if pid != id && p.DeletedAt == nil && match(p) {
			return true
		}
	}
	return false
}

func (m *memProductRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}

// ---- in-memory link repository ----

type memLinkRepo struct {
	mu          sync.Mutex
	links       map[string]*models.ExternalLink
	ensureErr   error
	ensureCalls int
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{links: make(map[string]*models.ExternalLink)}
}

func linkKey(integrationID, source, itemID, variationID string) string {
	return fmt.Sprintf("%s|%s|%s|%s", integrationID, source, itemID, variationID)
}

func (m *memLinkRepo) Find(_ context.Context, integrationID, source, itemID, variationID string) (*models.ExternalLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[linkKey(integrationID, source, itemID, variationID)]
	if !ok {
		return nil, nil
	}
	cp := *link
	return &cp, nil
}

func (m *memLinkRepo) EnsureLink(_ context.Context, link *models.ExternalLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureCalls++
	if m.ensureErr != nil {
		return m.ensureErr
	}
	key := linkKey(link.IntegrationID, link.Source, link.ExternalItemID, link.ExternalVariationID)
	if _, exists := m.links[key]; exists {
		return nil
	}
	cp := *link
	m.links[key] = &cp
	return nil
}

// ---- in-memory run repository ----

type memRunRepo struct {
	mu   sync.Mutex
	runs map[string]*models.ImportRun
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: make(map[string]*models.ImportRun)}
}

func copyRun(r *models.ImportRun) *models.ImportRun {
	cp := *r
	if r.Cursor != nil {
		c := *r.Cursor
		cp.Cursor = &c
	}
	cp.Errors = append([]models.RunError(nil), r.Errors...)
	return &cp
}

func (m *memRunRepo) Create(_ context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = copyRun(run)
	return nil
}

func (m *memRunRepo) FindByID(_ context.Context, id string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return copyRun(run), nil
}

func (m *memRunRepo) FindByIntegration(_ context.Context, integrationID string, limit int64) ([]models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []models.ImportRun
	for _, r := range m.runs {
		if r.IntegrationID == integrationID {
			runs = append(runs, *copyRun(r))
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if int64(len(runs)) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *memRunRepo) FindActive(_ context.Context, integrationID string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.IntegrationID == integrationID && !r.Status.Terminal() {
			return copyRun(r), nil
		}
	}
	return nil, nil
}

func (m *memRunRepo) UpdateStatus(_ context.Context, id string, status models.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	run.Status = status
	run.LastProgressAt = time.Now().UTC()
	return nil
}

func (m *memRunRepo) UpdateProgress(_ context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.LastProgressAt = time.Now().UTC()
	m.runs[run.ID] = copyRun(run)
	return nil
}

func (m *memRunRepo) Finish(_ context.Context, run *models.ImportRun, status models.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	m.runs[run.ID] = copyRun(run)
	return nil
}

// ---- in-memory integration repository ----

type memIntegrationRepo struct {
	mu            sync.Mutex
	integrations  map[string]*models.Integration
	lastSyncError string
	touched       bool
}

func newMemIntegrationRepo(integrations ...*models.Integration) *memIntegrationRepo {
	repo := &memIntegrationRepo{integrations: make(map[string]*models.Integration)}
	for _, i := range integrations {
		repo.integrations[i.ID] = i
	}
	return repo
}

func (m *memIntegrationRepo) FindByID(_ context.Context, id string) (*models.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.integrations[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *i
	return &cp, nil
}

func (m *memIntegrationRepo) SetLastSyncError(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSyncError = message
	return nil
}

func (m *memIntegrationRepo) TouchLastSyncedAt(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = true
	return nil
}

// ---- fake provider ----

type fakeProvider struct {
	mu         sync.Mutex
	pages      map[string]*models.CatalogPage // keyed by request cursor, "" = first page
	variations map[string]models.CatalogVariation
	whoamiErr  error
	fetchErr   error
	fetchCalls []string
	batchCalls [][]string
}

func (f *fakeProvider) Whoami(_ context.Context) error { return f.whoamiErr }

func (f *fakeProvider) fetch(ctx context.Context, cursor string) (*models.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls = append(f.fetchCalls, cursor)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	page, ok := f.pages[cursor]
	if !ok {
		return &models.CatalogPage{}, nil
	}
	return page, nil
}

func (f *fakeProvider) ListPage(ctx context.Context, cursor string) (*models.CatalogPage, error) {
	return f.fetch(ctx, cursor)
}

func (f *fakeProvider) SearchPage(ctx context.Context, cursor string) (*models.CatalogPage, error) {
	return f.fetch(ctx, cursor)
}

func (f *fakeProvider) BatchRetrieve(_ context.Context, ids []string) ([]models.CatalogVariation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, append([]string(nil), ids...))
	var out []models.CatalogVariation
	for _, id := range ids {
		if v, ok := f.variations[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// ---- fake credential resolver, queue, events ----

type staticResolver struct {
	token string
	env   string
	err   error
}

func (s *staticResolver) Resolve(_ context.Context, _ *models.Integration) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return s.token, s.env, nil
}

type fakeQueue struct {
	mu      sync.Mutex
	runIDs  []string
	failure error
}

func (q *fakeQueue) Enqueue(_ context.Context, runID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failure != nil {
		return q.failure
	}
	q.runIDs = append(q.runIDs, runID)
	return nil
}

func (q *fakeQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.runIDs) == 0 {
		return "", false
	}
	id := q.runIDs[0]
	q.runIDs = q.runIDs[1:]
	return id, true
}

type fakeEvents struct {
	mu     sync.Mutex
	events []models.RunEvent
}

func (f *fakeEvents) PublishRunEvent(evt models.RunEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}
