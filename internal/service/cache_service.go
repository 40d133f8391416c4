package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Generation returns the current generation of key. Values cached for an older
// generation are unreachable, so a reader that loaded before an invalidation
// cannot republish stale data under the live key.
func (s *CacheService) Generation(ctx context.Context, key string) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	var gen int64
	if err := s.repo.Get(ctx, generationKey(key), &gen); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return 0, nil
		}
		s.logger.Warn("cache generation read failed", zap.String("key", key), zap.Error(err))
		return 0, err
	}
	return gen, nil
}

// Invalidate bumps the generation of each key and drops the value cached for the previous one.
func (s *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if !s.Enabled() {
		return nil
	}
	stale := make([]string, 0, len(keys))
	for _, key := range keys {
		gen, err := s.repo.Incr(ctx, generationKey(key))
		if err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
			return err
		}
		stale = append(stale, VersionedKey(key, gen-1))
	}
	if err := s.repo.Delete(ctx, stale...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Strings("keys", stale), zap.Error(err))
		return err
	}
	return nil
}

// VersionedKey names the value of key cached under generation gen.
func VersionedKey(key string, gen int64) string {
	return fmt.Sprintf("%s@%d", key, gen)
}

func generationKey(key string) string {
	return key + ":gen"
}

// DiaryCacheKey is the cache key of a diary view.
func DiaryCacheKey(diaryID string) string {
	return "gd:diary:" + diaryID
}
