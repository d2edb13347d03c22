package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mensah-dev/school-results-api/internal/models"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
)

// ResultsCache caches derived read-side views (class reports, rankings and
// published student results) in Redis. A nil client disables caching.
type ResultsCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewResultsCache constructs a results cache.
func NewResultsCache(client *redis.Client, logger *zap.Logger) *ResultsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultsCache{client: client, logger: logger}
}

// ClassReportKey builds the cache key for a class report view.
func ClassReportKey(classID string, term models.Term, academicYear string) string {
	return fmt.Sprintf("results:report:%s:%s:%s", classID, term, academicYear)
}

// RankingKey builds the cache key for a class ranking view.
func RankingKey(classID string, term models.Term, academicYear string) string {
	return fmt.Sprintf("results:ranking:%s:%s:%s", classID, term, academicYear)
}

// StudentResultsKey builds the cache key for a student's published results.
func StudentResultsKey(studentID string, term models.Term, academicYear string) string {
	return fmt.Sprintf("results:student:%s:%s:%s", studentID, term, academicYear)
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (c *ResultsCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (c *ResultsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// InvalidateClassScope drops every cached view derived from a class/term/year
// scope, including per-student result views. Called after publish and after
// score mutations.
func (c *ResultsCache) InvalidateClassScope(ctx context.Context, classID string, term models.Term, academicYear string) {
	patterns := []string{
		ClassReportKey(classID, term, academicYear),
		RankingKey(classID, term, academicYear),
		fmt.Sprintf("results:student:*:%s:%s", term, academicYear),
	}
	for _, pattern := range patterns {
		if err := c.deleteByPattern(ctx, pattern); err != nil {
			c.logger.Sugar().Warnw("cache invalidation failed", "pattern", pattern, "error", err)
		}
	}
}

func (c *ResultsCache) deleteByPattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}

	return nil
}
