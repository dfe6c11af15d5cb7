package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-sync-service/credentials"
	"catalog-sync-service/models"
	"catalog-sync-service/providers"
	"catalog-sync-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrRunInProgress is returned when starting a sync for an integration
	// that already has a non-terminal run.
	ErrRunInProgress = errors.New("a sync run is already in progress for this integration")
	// ErrNotResumable is returned when resuming a run that is not PARTIAL.
	ErrNotResumable = errors.New("run is not in a resumable state")
)

const (
	// DefaultBudget is the wall-clock allowance for one execution context.
	DefaultBudget = 50 * time.Second
	// safetyMargin is subtracted from the budget before fetching another
	// page; dropping below it checkpoints the run instead.
	safetyMargin = 5 * time.Second
)

// ContinuationQueue hands a run ID to a fresh execution context. Budget
// exhaustion enqueues here instead of finishing the catalog in-process.
type ContinuationQueue interface {
	Enqueue(ctx context.Context, runID string) error
}

// EventPublisher receives run lifecycle events. Publishing is advisory; the
// scheduler never fails a run over it.
type EventPublisher interface {
	PublishRunEvent(evt models.RunEvent) error
}

// SyncService owns run admission and the page-processing loop. Each Execute
// call is one single-threaded invocation under a wall-clock budget; catalogs
// larger than one budget span are processed across many invocations chained
// through the continuation queue.
type SyncService struct {
	runs         repository.RunRepository
	integrations repository.IntegrationRepository
	links        repository.LinkRepository
	matcher      *Matcher
	upserter     *Upserter
	creds        credentials.Resolver
	queue        ContinuationQueue
	events       EventPublisher
	budget       time.Duration

	// NewProvider builds the catalog client for one execution; overridable
	// in tests.
	NewProvider func(token, environment string) providers.CatalogProvider
}

func NewSyncService(
	runs repository.RunRepository,
	integrations repository.IntegrationRepository,
	products repository.ProductRepository,
	links repository.LinkRepository,
	creds credentials.Resolver,
	queue ContinuationQueue,
	events EventPublisher,
	budget time.Duration,
) *SyncService {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &SyncService{
		runs:         runs,
		integrations: integrations,
		links:        links,
		matcher:      NewMatcher(products, links),
		upserter:     NewUpserter(products),
		creds:        creds,
		queue:        queue,
		events:       events,
		budget:       budget,
		NewProvider: func(token, environment string) providers.CatalogProvider {
			return providers.NewSquareProvider(token, environment)
		},
	}
}

// Start admits a new run for the integration. A second start while any run is
// non-terminal is refused, not serialized.
func (s *SyncService) Start(ctx context.Context, integrationID string) (*models.ImportRun, error) {
	integration, err := s.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("load integration %s: %w", integrationID, err)
	}

	active, err := s.runs.FindActive(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("check active runs: %w", err)
	}
	if active != nil {
		return nil, ErrRunInProgress
	}

	now := time.Now().UTC()
	run := &models.ImportRun{
		ID:             uuid.NewString(),
		IntegrationID:  integration.ID,
		Status:         models.RunStatusPending,
		StartedAt:      now,
		LastProgressAt: now,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	if err := s.runs.UpdateStatus(ctx, run.ID, models.RunStatusRunning); err != nil {
		return nil, fmt.Errorf("mark run running: %w", err)
	}
	run.Status = models.RunStatusRunning

	if err := s.queue.Enqueue(ctx, run.ID); err != nil {
		_ = s.runs.Finish(ctx, run, models.RunStatusFailed)
		return nil, fmt.Errorf("enqueue run: %w", err)
	}

	s.publish(models.EventRunStarted, run)
	zap.L().Info("sync run started",
		zap.String("run_id", run.ID),
		zap.String("integration_id", integrationID),
	)
	return run, nil
}

// Resume re-enters the loop for a run checkpointed at PARTIAL.
func (s *SyncService) Resume(ctx context.Context, runID string) (*models.ImportRun, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != models.RunStatusPartial {
		return nil, ErrNotResumable
	}

	if err := s.runs.UpdateStatus(ctx, run.ID, models.RunStatusRunning); err != nil {
		return nil, fmt.Errorf("mark run running: %w", err)
	}
	run.Status = models.RunStatusRunning

	if err := s.queue.Enqueue(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("enqueue run: %w", err)
	}

	zap.L().Info("sync run resumed", zap.String("run_id", run.ID), zap.String("cursor", run.CursorValue()))
	return run, nil
}

// GetRun exposes the persisted run to operators.
func (s *SyncService) GetRun(ctx context.Context, runID string) (*models.ImportRun, error) {
	return s.runs.FindByID(ctx, runID)
}

// ListRuns returns the integration's recent runs, newest first.
func (s *SyncService) ListRuns(ctx context.Context, integrationID string, limit int64) ([]models.ImportRun, error) {
	return s.runs.FindByIntegration(ctx, integrationID, limit)
}

// Execute is one invocation of the page-processing loop. Re-invoking a
// terminal run is a no-op. The invocation either exhausts the catalog
// (SUCCESS/FAILED), hits the time budget and hands off through the
// continuation queue (PARTIAL), or aborts on a fatal error (FAILED).
func (s *SyncService) Execute(ctx context.Context, runID string) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Status.Terminal() {
		zap.L().Info("skipping terminal run", zap.String("run_id", runID), zap.String("status", string(run.Status)))
		return nil
	}

	integration, err := s.integrations.FindByID(ctx, run.IntegrationID)
	if err != nil {
		return s.fail(ctx, run, models.ErrCodeCredentials, fmt.Sprintf("integration not found: %v", err))
	}

	if run.Status != models.RunStatusRunning {
		if err := s.runs.UpdateStatus(ctx, run.ID, models.RunStatusRunning); err != nil {
			return fmt.Errorf("mark run running: %w", err)
		}
		run.Status = models.RunStatusRunning
	}

	start := time.Now()
	budgetCtx, cancel := context.WithDeadline(ctx, start.Add(s.budget))
	defer cancel()

	token, environment, err := s.creds.Resolve(ctx, integration)
	if err != nil {
		return s.fail(ctx, run, models.ErrCodeCredentials, err.Error())
	}

	provider := s.NewProvider(token, environment)
	if err := provider.Whoami(budgetCtx); err != nil {
		return s.fail(ctx, run, models.ErrCodeCatalogAccess, err.Error())
	}

	fetch := provider.ListPage
	if integration.CatalogMode == models.CatalogModeSearch {
		fetch = provider.SearchPage
	}
	resolver := NewVariationResolver(provider)

	cursor := run.CursorValue()
	for {
		page, err := fetch(budgetCtx, cursor)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				// The budget ran out absorbing throttles; this is the
				// expected steady-state handoff, not an error.
				return s.checkpoint(ctx, run, cursor)
			}
			return s.fail(ctx, run, models.ErrCodeFetchFailed, err.Error())
		}

		grouped, err := resolver.Resolve(budgetCtx, page)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return s.checkpoint(ctx, run, cursor)
			}
			return s.fail(ctx, run, models.ErrCodeFetchFailed, err.Error())
		}

		// Local persistence is not bounded by the fetch budget; only
		// provider calls are.
		s.processPage(ctx, run, integration, page, grouped)

		cursor = page.Cursor
		if cursor == "" {
			run.Cursor = nil
			run.Status = models.RunStatusSuccess
		} else {
			c := cursor
			run.Cursor = &c
			run.Status = models.RunStatusPartial
		}
		if err := s.runs.UpdateProgress(ctx, run); err != nil {
			return fmt.Errorf("persist progress for run %s: %w", run.ID, err)
		}

		if cursor == "" {
			return s.finalize(ctx, run, integration)
		}
		if time.Since(start) >= s.budget-safetyMargin {
			return s.checkpoint(ctx, run, cursor)
		}
	}
}

// processPage runs every (item, variation) pair through match, upsert and
// link reconciliation, strictly in page order. Per-pair failures are recorded
// and counted; they never abort the page.
func (s *SyncService) processPage(ctx context.Context, run *models.ImportRun, integration *models.Integration, page *models.CatalogPage, grouped map[string][]models.CatalogVariation) {
	for _, item := range page.Items {
		variations := grouped[item.ID]
		if len(variations) == 0 {
			s.processPair(ctx, run, integration, item, nil)
			continue
		}
		for i := range variations {
			s.processPair(ctx, run, integration, item, &variations[i])
		}
	}
}

func (s *SyncService) processPair(ctx context.Context, run *models.ImportRun, integration *models.Integration, item models.CatalogItem, variation *models.CatalogVariation) {
	run.Counters.Processed++

	code := models.ErrCodeItemUpsertFailed
	variationID := ""
	if variation != nil {
		code = models.ErrCodeVariationUpsertFailed
		variationID = variation.ID
	}

	existing, err := s.matcher.Match(ctx, integration.ID, integration.Source, item, variation)
	if err != nil {
		s.recordPairFailure(run, code, item.ID, variationID, err)
		return
	}

	result, err := s.upserter.Apply(ctx, existing, item, variation)
	if err != nil {
		s.recordPairFailure(run, code, item.ID, variationID, err)
		return
	}
	if result.Created {
		run.Counters.Created++
	}
	if result.Updated {
		run.Counters.Updated++
	}
	if result.UPCConflict {
		run.RecordError(models.ErrCodeUPCConflict, "UPC already owned by another product", map[string]string{
			"external_item_id":      item.ID,
			"external_variation_id": variationID,
		})
	}

	if result.ProductID == "" {
		// Creation was abandoned on a conflict; nothing to link.
		return
	}

	err = s.links.EnsureLink(ctx, &models.ExternalLink{
		IntegrationID:       integration.ID,
		Source:              integration.Source,
		ExternalItemID:      item.ID,
		ExternalVariationID: variationID,
		ProductID:           result.ProductID,
	})
	if err != nil {
		s.recordPairFailure(run, code, item.ID, variationID, fmt.Errorf("ensure link: %w", err))
	}
}

func (s *SyncService) recordPairFailure(run *models.ImportRun, code models.SyncErrorCode, itemID, variationID string, err error) {
	run.Counters.Failed++
	run.RecordError(code, err.Error(), map[string]string{
		"external_item_id":      itemID,
		"external_variation_id": variationID,
	})
	zap.L().Warn("catalog pair failed",
		zap.String("run_id", run.ID),
		zap.String("external_item_id", itemID),
		zap.String("external_variation_id", variationID),
		zap.Error(err),
	)
}

// checkpoint persists PARTIAL with the current cursor and hands the run to a
// fresh execution context.
func (s *SyncService) checkpoint(ctx context.Context, run *models.ImportRun, cursor string) error {
	if cursor == "" {
		run.Cursor = nil
	} else {
		c := cursor
		run.Cursor = &c
	}
	run.Status = models.RunStatusPartial
	if err := s.runs.UpdateProgress(ctx, run); err != nil {
		return fmt.Errorf("persist checkpoint for run %s: %w", run.ID, err)
	}

	if err := s.queue.Enqueue(ctx, run.ID); err != nil {
		return fmt.Errorf("enqueue continuation for run %s: %w", run.ID, err)
	}

	s.publish(models.EventRunCheckpointed, run)
	zap.L().Info("sync run checkpointed",
		zap.String("run_id", run.ID),
		zap.String("cursor", cursor),
		zap.Int64("processed", run.Counters.Processed),
	)
	return nil
}

// finalize closes a run whose catalog is exhausted. A run that changed
// nothing but failed on every pair finishes FAILED.
func (s *SyncService) finalize(ctx context.Context, run *models.ImportRun, integration *models.Integration) error {
	status := models.RunStatusSuccess
	if run.Counters.Created+run.Counters.Updated == 0 && run.Counters.Failed > 0 {
		status = models.RunStatusFailed
	}
	if err := s.runs.Finish(ctx, run, status); err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}

	if status == models.RunStatusSuccess {
		if err := s.integrations.TouchLastSyncedAt(ctx, integration.ID); err != nil {
			zap.L().Warn("failed to stamp integration sync time", zap.String("integration_id", integration.ID), zap.Error(err))
		}
	} else if err := s.integrations.SetLastSyncError(ctx, integration.ID, "sync finished with failures only"); err != nil {
		zap.L().Warn("failed to record integration sync error", zap.String("integration_id", integration.ID), zap.Error(err))
	}

	s.publish(models.EventRunFinished, run)
	zap.L().Info("sync run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(status)),
		zap.Int64("processed", run.Counters.Processed),
		zap.Int64("created", run.Counters.Created),
		zap.Int64("updated", run.Counters.Updated),
		zap.Int64("failed", run.Counters.Failed),
	)
	return nil
}

// fail aborts the run on a fatal category and surfaces the message on the
// integration for operator visibility.
func (s *SyncService) fail(ctx context.Context, run *models.ImportRun, code models.SyncErrorCode, message string) error {
	run.RecordError(code, message, nil)
	if err := s.runs.Finish(ctx, run, models.RunStatusFailed); err != nil {
		zap.L().Error("failed to persist failed run", zap.String("run_id", run.ID), zap.Error(err))
	}
	if err := s.integrations.SetLastSyncError(ctx, run.IntegrationID, message); err != nil {
		zap.L().Warn("failed to record integration sync error", zap.String("integration_id", run.IntegrationID), zap.Error(err))
	}

	s.publish(models.EventRunFinished, run)
	zap.L().Error("sync run failed",
		zap.String("run_id", run.ID),
		zap.String("code", string(code)),
		zap.String("message", message),
	)
	return fmt.Errorf("run %s failed (%s): %s", run.ID, code, message)
}

func (s *SyncService) publish(eventType string, run *models.ImportRun) {
	if s.events == nil {
		return
	}
	evt := models.RunEvent{
		Type:          eventType,
		RunID:         run.ID,
		IntegrationID: run.IntegrationID,
		Status:        run.Status,
		Counters:      run.Counters,
		At:            time.Now().UTC(),
	}
	if err := s.events.PublishRunEvent(evt); err != nil {
		zap.L().Warn("failed to publish run event", zap.String("run_id", run.ID), zap.String("type", eventType), zap.Error(err))
	}
}
