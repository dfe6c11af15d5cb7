package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// QueueKey is the redis list carrying run IDs awaiting an execution
	// context.
	QueueKey = "catalog_sync:queue"

	jobKeyPrefix = "catalog_sync:job:"
	jobKeyTTL    = 24 * time.Hour
)

// RedisQueue is the continuation queue: enqueuing a run ID asks for a fresh
// execution context with the same run identity.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Enqueue(ctx context.Context, runID string) error {
	if err := q.rdb.RPush(ctx, QueueKey, runID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue run: %w", err)
	}
	q.mirrorStatus(ctx, runID, "queued", "")
	return nil
}

// mirrorStatus keeps a lightweight job-status key for pollers that only have
// the redis side. The run document in Mongo stays authoritative.
func (q *RedisQueue) mirrorStatus(ctx context.Context, runID, status, errMsg string) {
	meta := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if errMsg != "" {
		meta["error"] = errMsg
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := q.rdb.Set(ctx, jobKeyPrefix+runID, b, jobKeyTTL).Err(); err != nil {
		zap.L().Debug("failed to mirror job status", zap.String("run_id", runID), zap.Error(err))
	}
}

// StartSyncWorker starts a background worker that consumes run IDs from the
// continuation queue and executes them. Each dequeued job is a new execution
// context: it gets its own context and its own time budget inside Execute.
func StartSyncWorker(ctx context.Context, rdb *redis.Client, svc *SyncService) {
	if rdb == nil || svc == nil {
		zap.L().Warn("sync worker not started: missing dependencies")
		return
	}

	queue := NewRedisQueue(rdb)

	go func() {
		zap.L().Info("sync worker started", zap.String("queue", QueueKey))
		for {
			select {
			case <-ctx.Done():
				zap.L().Info("sync worker stopping")
				return
			default:
			}

			// BLPop with no timeout blocks until an item is available
			res, err := rdb.BLPop(ctx, 0*time.Second, QueueKey).Result()
			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				zap.L().Error("redis BLPop failed", zap.Error(err))
				time.Sleep(500 * time.Millisecond)
				continue
			}
			if len(res) < 2 {
				continue
			}
			runID := res[1]

			queue.mirrorStatus(ctx, runID, "executing", "")
			if err := svc.Execute(context.Background(), runID); err != nil {
				zap.L().Error("run execution failed", zap.String("run_id", runID), zap.Error(err))
				queue.mirrorStatus(ctx, runID, "failed", err.Error())
				continue
			}
			queue.mirrorStatus(ctx, runID, "done", "")
		}
	}()
}
