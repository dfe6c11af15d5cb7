package controllers

import (
	"context"
	"net/http"

	"catalog-sync-service/repository"
	"catalog-sync-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncController exposes the trigger boundary: start, resume, and read-only
// run inspection. Continuation is queue-internal and has no HTTP route.
type SyncController struct {
	syncService SyncServiceAPI
	validator   *RequestValidator
}

func NewSyncController(syncService SyncServiceAPI, validator *RequestValidator) *SyncController {
	return &SyncController{
		syncService: syncService,
		validator:   validator,
	}
}

// StartSync admits a new run for an integration.
func (ctrl *SyncController) StartSync(c *gin.Context) {
	integrationID, err := ctrl.validator.ValidateIntegrationID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultContextTimeout)
	defer cancel()

	run, err := ctrl.syncService.Start(ctx, integrationID)
	if err != nil {
		if err == services.ErrRunInProgress {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Integration not found"})
			return
		}
		zap.L().Error("Failed to start sync", zap.String("integration_id", integrationID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sync"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  run.ID,
		"status":  run.Status,
		"message": "Sync queued for processing",
	})
}

// ResumeSync re-enters a run checkpointed at PARTIAL.
func (ctrl *SyncController) ResumeSync(c *gin.Context) {
	runID, err := ctrl.validator.ValidateRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultContextTimeout)
	defer cancel()

	run, err := ctrl.syncService.Resume(ctx, runID)
	if err != nil {
		if err == services.ErrNotResumable {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		zap.L().Error("Failed to resume sync", zap.String("run_id", runID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resume sync"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  run.ID,
		"status":  run.Status,
		"cursor":  run.Cursor,
		"message": "Sync resumed",
	})
}

// GetRun returns the persisted run: status, cursor, counters, error ledger
// and timestamps, all read-only.
func (ctrl *SyncController) GetRun(c *gin.Context) {
	runID, err := ctrl.validator.ValidateRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultContextTimeout)
	defer cancel()

	run, err := ctrl.syncService.GetRun(ctx, runID)
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		zap.L().Error("Failed to get run", zap.String("run_id", runID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve run"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListRuns returns an integration's recent runs, newest first.
func (ctrl *SyncController) ListRuns(c *gin.Context) {
	integrationID, err := ctrl.validator.ValidateIntegrationID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := ctrl.validator.ValidateLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultContextTimeout)
	defer cancel()

	runs, err := ctrl.syncService.ListRuns(ctx, integrationID, limit)
	if err != nil {
		zap.L().Error("Failed to list runs", zap.String("integration_id", integrationID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
