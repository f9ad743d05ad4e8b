package plancache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/choosemypower/ziproute/app/models"
	"github.com/choosemypower/ziproute/app/repository"
	"github.com/choosemypower/ziproute/internal/pkg/apperrors"
	"github.com/choosemypower/ziproute/internal/pkg/pricing"
)

type fakeCacheStore struct {
	rows      map[string]models.PlanCacheEntry
	getErr    error
	upsertErr error
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{rows: make(map[string]models.PlanCacheEntry)}
}

func (f *fakeCacheStore) GetByKey(key string) (*models.PlanCacheEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	row, ok := f.rows[key]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (f *fakeCacheStore) Upsert(entry *models.PlanCacheEntry) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.rows[entry.CacheKey]; ok {
		// Mirrors ON DUPLICATE KEY UPDATE: created_at survives refreshes.
		entry.CreatedAt = existing.CreatedAt
	}
	f.rows[entry.CacheKey] = *entry
	return nil
}

func (f *fakeCacheStore) DeleteExpired(before time.Time) (int64, error) { return 0, nil }
func (f *fakeCacheStore) Count() (int64, error)                         { return int64(len(f.rows)), nil }

var _ repository.PlanCacheRepository = (*fakeCacheStore)(nil)

type fakeApiLogStore struct {
	entries []models.ApiLog
}

func (f *fakeApiLogStore) Create(entry *models.ApiLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}
func (f *fakeApiLogStore) GetSince(since time.Time) ([]models.ApiLog, error) {
	return f.entries, nil
}
func (f *fakeApiLogStore) PerformanceSince(since time.Time) (*repository.PerformanceStats, error) {
	return &repository.PerformanceStats{}, nil
}

var _ repository.ApiLogRepository = (*fakeApiLogStore)(nil)

type fakeFetcher struct {
	plans []pricing.Plan
	err   error
	calls int
}

func (f *fakeFetcher) FetchPlans(ctx context.Context, tdspDuns string, displayUsage int) ([]pricing.Plan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.plans, nil
}

func testPlans() []pricing.Plan {
	return []pricing.Plan{
		{ID: "p1", Name: "Saver 12", Pricing: pricing.PlanPricing{Rate: 0.129, Total: 129}},
		{ID: "p2", Name: "Value 24", Pricing: pricing.PlanPricing{Rate: 0.112, Total: 112}},
		{ID: "p3", Name: "Free Nights", Pricing: pricing.PlanPricing{Rate: 0.145, Total: 145}},
	}
}

func newTestService(cache *fakeCacheStore, logs *fakeApiLogStore, fetcher *fakeFetcher) *Service {
	return NewService(cache, logs, fetcher, time.Hour)
}

func TestGetOrFetchMissCallsUpstreamOnce(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	snap, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 3, snap.PlanCount)
	assert.InDelta(t, 0.112, snap.LowestRate, 0.0001)
	assert.False(t, snap.FromCache)
	assert.False(t, snap.Stale)

	// A row was persisted for the canonical key.
	row, _ := cache.GetByKey(snap.CacheKey)
	assert.NotNil(t, row)
	assert.Equal(t, 3, row.PlanCount)
}

func TestGetOrFetchHitSkipsUpstream(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	first, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)

	second, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "cache hit must not call upstream")
	assert.True(t, second.FromCache)
	assert.Equal(t, first.PlanCount, second.PlanCount)
	assert.Equal(t, first.LowestRate, second.LowestRate)
}

func TestGetOrFetchRefreshKeepsSingleRow(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	_, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)

	// Expire the row, change the upstream answer, and refetch.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	fetcher.plans = testPlans()[:1]

	snap, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)
	assert.Equal(t, 1, snap.PlanCount)

	count, _ := cache.Count()
	assert.Equal(t, int64(1), count, "refresh must upsert, not insert")
	row, _ := cache.GetByKey(snap.CacheKey)
	assert.Equal(t, 1, row.PlanCount)
}

func TestGetOrFetchExpiryBoundary(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	key := CacheKey("1039940674000", map[string]string{"display_usage": "1000"})
	cache.rows[key] = models.PlanCacheEntry{
		CacheKey:  key,
		TdspDuns:  "1039940674000",
		PlansData: models.JSON(`[{"id":"old"}]`),
		PlanCount: 1,
		CachedAt:  now.Add(-time.Hour),
		ExpiresAt: now, // expires exactly "now": already expired
	}
	svc.now = func() time.Time { return now }

	_, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "expiry at now must trigger a refetch")
}

func TestGetOrFetchServesStaleOnUpstreamFailure(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	_, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	fetcher.err = &apperrors.UpstreamFetchError{Endpoint: "/plans", Status: 502}

	snap, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err, "stale row should be served when upstream fails")
	assert.True(t, snap.Stale)
	assert.True(t, snap.FromCache)
	assert.Equal(t, 3, snap.PlanCount)
}

func TestGetOrFetchRefetchesOnCorruptSnapshot(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	key := CacheKey("1039940674000", map[string]string{"display_usage": "1000"})
	cache.rows[key] = models.PlanCacheEntry{
		CacheKey:  key,
		TdspDuns:  "1039940674000",
		PlansData: models.JSON(`{{{not-json`),
		PlanCount: 1,
		CachedAt:  now.Add(-time.Minute),
		ExpiresAt: now.Add(time.Hour), // still live, but unreadable
	}
	svc.now = func() time.Time { return now }

	snap, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err, "a corrupt row must degrade to upstream, not fail the request")
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 3, snap.PlanCount)
	assert.False(t, snap.FromCache)

	// The refetch overwrote the bad row.
	row, _ := cache.GetByKey(key)
	assert.Equal(t, 3, row.PlanCount)
	assert.True(t, json.Valid(row.PlansData))
}

func TestGetOrFetchUpstreamFailureWithCorruptStaleRow(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{err: &apperrors.UpstreamFetchError{Endpoint: "/plans", Status: 502}}
	svc := newTestService(cache, logs, fetcher)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	key := CacheKey("1039940674000", map[string]string{"display_usage": "1000"})
	cache.rows[key] = models.PlanCacheEntry{
		CacheKey:  key,
		TdspDuns:  "1039940674000",
		PlansData: models.JSON(`{{{not-json`),
		PlanCount: 1,
		CachedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour), // expired and unreadable
	}
	svc.now = func() time.Time { return now }

	_, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	if !apperrors.IsUpstreamFetch(err) {
		t.Fatalf("expected the upstream error, got %v", err)
	}
}

func TestGetOrFetchUpstreamFailureWithoutStaleRow(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{err: &apperrors.UpstreamFetchError{Endpoint: "/plans", Status: 503}}
	svc := newTestService(cache, logs, fetcher)

	_, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	if !apperrors.IsUpstreamFetch(err) {
		t.Fatalf("expected UpstreamFetchError, got %v", err)
	}
}

func TestGetOrFetchToleratesPersistFailure(t *testing.T) {
	cache := newFakeCacheStore()
	cache.upsertErr = errors.New("disk full")
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	snap, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err, "a fresh upstream result must not fail on cache write errors")
	assert.Equal(t, 3, snap.PlanCount)
}

func TestGetOrFetchFallsThroughOnCacheReadError(t *testing.T) {
	cache := newFakeCacheStore()
	cache.getErr = errors.New("connection refused")
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	snap, err := svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 3, snap.PlanCount)
}

func TestGetOrFetchLogsOutcomes(t *testing.T) {
	cache := newFakeCacheStore()
	logs := &fakeApiLogStore{}
	fetcher := &fakeFetcher{plans: testPlans()}
	svc := newTestService(cache, logs, fetcher)

	_, _ = svc.GetOrFetch(context.Background(), "1039940674000", 1000)
	_, _ = svc.GetOrFetch(context.Background(), "1039940674000", 1000)

	assert.Len(t, logs.entries, 2)
	assert.Contains(t, logs.entries[0].Params, `"outcome":"miss"`)
	assert.Contains(t, logs.entries[1].Params, `"outcome":"hit"`)
	assert.Equal(t, "/plans", logs.entries[0].Endpoint)

	// Params rows are canonical JSON, not hand-assembled strings.
	for _, entry := range logs.entries {
		var decoded map[string]string
		assert.NoError(t, json.Unmarshal([]byte(entry.Params), &decoded))
		assert.NotEmpty(t, decoded["cache_key"])
	}
}
