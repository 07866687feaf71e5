// internal/stats/worker.go
package stats

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ft-transcendence/pong-service/internal/cache"
	"github.com/ft-transcendence/pong-service/internal/database"
)

const popTimeout = 5 * time.Second

// Worker drains the Redis results queue into Postgres. Run it once per
// process; results survive in the queue across restarts.
type Worker struct {
	logger *logrus.Logger
}

// NewWorker builds a results worker.
func NewWorker(logger *logrus.Logger) *Worker {
	return &Worker{logger: logger}
}

// Run blocks until the context is cancelled, persisting queued results as
// they arrive. Call it on its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("stats worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		default:
		}

		result, err := cache.PopMatchResult(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warnf("stats worker: pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if result == nil {
			continue
		}

		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = database.RecordResult(writeCtx, *result)
		cancel()
		if err != nil {
			w.logger.Errorf("stats worker: persist failed for %s: %v", result.Nickname, err)
			continue
		}
		cache.InvalidateLeaderboard(ctx)
	}
}
