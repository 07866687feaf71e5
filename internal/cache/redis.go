// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ft-transcendence/pong-service/internal/models"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for finished match results
// awaiting persistence.
var DefaultQueueName = "stats_results"

// leaderboardKey caches the serialized /entries response.
const leaderboardKey = "pong_leaderboard"

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishMatchResult serializes the result to JSON and pushes it onto the
// results queue for the stats worker to persist.
func PublishMatchResult(ctx context.Context, result models.MatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchResult: %w", err)
	}

	queueName := getEnv("RESULTS_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// PopMatchResult blocks up to timeout for the next queued result. A nil
// result with a nil error means the wait timed out.
func PopMatchResult(ctx context.Context, timeout time.Duration) (*models.MatchResult, error) {
	queueName := getEnv("RESULTS_QUEUE_NAME", DefaultQueueName)
	vals, err := Rdb.BLPop(ctx, timeout, queueName).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to BLPop from Redis list '%s': %w", queueName, err)
	}
	if len(vals) < 2 {
		return nil, nil
	}

	var result models.MatchResult
	if err := json.Unmarshal([]byte(vals[1]), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal MatchResult: %w", err)
	}
	return &result, nil
}

// CacheLeaderboard stores the serialized leaderboard response.
func CacheLeaderboard(ctx context.Context, payload []byte, ttl time.Duration) error {
	return Rdb.Set(ctx, leaderboardKey, payload, ttl).Err()
}

// CachedLeaderboard returns the cached leaderboard response, if present.
func CachedLeaderboard(ctx context.Context) ([]byte, bool) {
	data, err := Rdb.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// InvalidateLeaderboard drops the cached leaderboard after a write.
func InvalidateLeaderboard(ctx context.Context) {
	Rdb.Del(ctx, leaderboardKey)
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
