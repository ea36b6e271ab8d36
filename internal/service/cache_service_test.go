package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/horario-api/pkg/errors"
)

type cacheRepoStub struct {
	store    map[string][]byte
	ttls     map[string]time.Duration
	patterns []string
	getErr   error
	setErr   error
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{store: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = raw
	s.ttls[key] = ttl
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.store, key)
	}
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	assert.Empty(t, repo.store)

	var dest string
	hit, err := svc.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.NoError(t, nilSvc.InvalidateStudent(ctx, "stu-1", 0))
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 5*time.Minute, nil, true)
	ctx := context.Background()

	var dest map[string]int
	hit, err := svc.Get(ctx, TimetableViewKey("stu-1", 1), &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, TimetableViewKey("stu-1", 1), map[string]int{"calc": 0}, 0))
	assert.Equal(t, 5*time.Minute, repo.ttls["timetable:view:stu-1:v1"])

	hit, err = svc.Get(ctx, TimetableViewKey("stu-1", 1), &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 0, dest["calc"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceInvalidation(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewCacheService(repo, nil, 0, nil, true)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, TimetableViewKey("stu-1", 3), 1, 0))
	require.NoError(t, svc.Set(ctx, TimetableViewKey("stu-1", 4), 1, 0))
	require.NoError(t, svc.Set(ctx, TimetableViewKey("stu-2", 3), 2, 0))

	require.NoError(t, svc.InvalidateStudent(ctx, "stu-1", 3))
	assert.NotContains(t, repo.store, "timetable:view:stu-1:v3")
	assert.Contains(t, repo.store, "timetable:view:stu-1:v4")
	assert.Contains(t, repo.store, "timetable:view:stu-2:v3")

	require.NoError(t, svc.InvalidateViews(ctx))
	assert.Empty(t, repo.store)
	assert.Equal(t, []string{"timetable:view:*"}, repo.patterns)
}

func TestCacheServiceGetErrorIsReported(t *testing.T) {
	repo := newCacheRepoStub()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var dest string
	hit, err := svc.Get(context.Background(), "k", &dest)
	assert.Error(t, err)
	assert.False(t, hit)
}
