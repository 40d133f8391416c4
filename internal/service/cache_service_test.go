package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
)

type cacheRepoStub struct {
	values   map[string]string
	counters map[string]int64
	getErr   error
	deleted  []string
	ttl      time.Duration
}

func newCacheRepoStub(values map[string]string) *cacheRepoStub {
	return &cacheRepoStub{values: values, counters: make(map[string]int64)}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	if counter, ok := dest.(*int64); ok {
		value, found := c.counters[key]
		if !found {
			return appErrors.ErrCacheMiss
		}
		*counter = value
		return nil
	}
	value, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = value
	return nil
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.values[key] = value.(string)
	c.ttl = ttl
	return nil
}

func (c *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *cacheRepoStub) Incr(ctx context.Context, key string) (int64, error) {
	c.counters[key]++
	return c.counters[key], nil
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	repo := newCacheRepoStub(map[string]string{})
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, time.Minute, repo.ttl)

	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", out)
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))

	require.NoError(t, svc.Invalidate(context.Background(), "k"))
	assert.Equal(t, []string{"k@0"}, repo.deleted)

	repo.getErr = errors.New("connection refused")
	_, err = svc.Get(context.Background(), "k", &out)
	require.Error(t, err)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newCacheRepoStub(map[string]string{"k": "v"})
	svc := NewCacheService(repo, nil, 0, nil, false)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Invalidate(context.Background(), "k"))
	assert.Empty(t, repo.deleted)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceInvalidateRetiresOlderGeneration(t *testing.T) {
	repo := newCacheRepoStub(map[string]string{})
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	gen, err := svc.Generation(ctx, "gd:diary:d-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
	before := VersionedKey("gd:diary:d-1", gen)
	assert.Equal(t, "gd:diary:d-1@0", before)

	require.NoError(t, svc.Invalidate(ctx, "gd:diary:d-1"))
	// A reader that loaded before the invalidation writes under the retired key.
	require.NoError(t, svc.Set(ctx, before, "stale", 0))

	gen, err = svc.Generation(ctx, "gd:diary:d-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	var out string
	hit, err := svc.Get(ctx, VersionedKey("gd:diary:d-1", gen), &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(1), repo.counters["gd:diary:d-1:gen"])
}
