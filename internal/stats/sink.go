// internal/stats/sink.go
package stats

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ft-transcendence/pong-service/internal/cache"
	"github.com/ft-transcendence/pong-service/internal/database"
	"github.com/ft-transcendence/pong-service/internal/models"
)

const publishTimeout = 2 * time.Second

// Sink accepts finished match results from the game loop and queues them in
// Redis for the background worker. Persistence never runs on the engine
// goroutine; when Redis is unavailable the sink falls back to a direct
// database write on its own goroutine.
type Sink struct {
	logger *logrus.Logger
}

// NewSink builds a result sink.
func NewSink(logger *logrus.Logger) *Sink {
	return &Sink{logger: logger}
}

// RecordResult queues one player's view of a finished match.
func (s *Sink) RecordResult(result models.MatchResult) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if cache.Rdb != nil {
		err := cache.PublishMatchResult(ctx, result)
		if err == nil {
			return
		}
		s.logger.Warnf("stats: redis publish failed for %s, writing directly: %v", result.Nickname, err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.RecordResult(ctx, result); err != nil {
			s.logger.Errorf("stats: direct write failed for %s: %v", result.Nickname, err)
		}
	}()
}
