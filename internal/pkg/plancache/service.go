package plancache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/choosemypower/ziproute/app/models"
	"github.com/choosemypower/ziproute/app/repository"
	"github.com/choosemypower/ziproute/internal/pkg/apperrors"
	"github.com/choosemypower/ziproute/internal/pkg/env"
	"github.com/choosemypower/ziproute/internal/pkg/pricing"
)

const DefaultTTL = time.Hour

// Fetcher is the upstream pricing collaborator.
type Fetcher interface {
	FetchPlans(ctx context.Context, tdspDuns string, displayUsage int) ([]pricing.Plan, error)
}

// Snapshot is one plan set served to a caller, either fresh from upstream or
// out of the cache table. Stale marks the degraded path where an expired row
// was served because upstream was down.
type Snapshot struct {
	CacheKey   string         `json:"cache_key"`
	TdspDuns   string         `json:"tdsp_duns"`
	Plans      []pricing.Plan `json:"plans"`
	PlanCount  int            `json:"plan_count"`
	LowestRate float64        `json:"lowest_rate"`
	CachedAt   time.Time      `json:"cached_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
	FromCache  bool           `json:"from_cache"`
	Stale      bool           `json:"stale"`
}

// Service implements the read-through plan cache over the cache table and
// the upstream pricing API. Concurrent misses for the same key may each call
// upstream; the keyed upsert is idempotent and last-write-wins, so no
// in-flight deduplication is needed for correctness.
type Service struct {
	cache   repository.PlanCacheRepository
	apiLogs repository.ApiLogRepository
	fetcher Fetcher
	ttl     time.Duration

	now func() time.Time
}

// NewService creates a plan cache service with the given TTL.
func NewService(cache repository.PlanCacheRepository, apiLogs repository.ApiLogRepository, fetcher Fetcher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		cache:   cache,
		apiLogs: apiLogs,
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewServiceFromEnv reads PLAN_CACHE_TTL_MINUTES for the TTL.
func NewServiceFromEnv(cache repository.PlanCacheRepository, apiLogs repository.ApiLogRepository, fetcher Fetcher) *Service {
	ttl := DefaultTTL
	if minutes, err := strconv.Atoi(env.GetEnv("PLAN_CACHE_TTL_MINUTES", "")); err == nil && minutes > 0 {
		ttl = time.Duration(minutes) * time.Minute
	}
	return NewService(cache, apiLogs, fetcher, ttl)
}

// GetOrFetch returns the cached plan snapshot for a query, calling upstream
// on a miss or expiry. On upstream failure the most recent stale row is
// served when one exists; only when there is nothing to serve does the
// upstream error surface.
func (s *Service) GetOrFetch(ctx context.Context, tdspDuns string, displayUsage int) (*Snapshot, error) {
	key := CacheKey(tdspDuns, map[string]string{"display_usage": strconv.Itoa(displayUsage)})
	start := s.now()

	entry, err := s.cache.GetByKey(key)
	if err != nil {
		// The cache is derived state; a broken cache read degrades to a
		// direct upstream call instead of failing the request.
		log.Warnf("[PlanCache] cache read failed for %s, falling through to upstream: %v", key, err)
		entry = nil
	}

	if entry != nil && entry.IsValid(start) {
		snapshot, err := snapshotFromEntry(entry, true, false)
		if err == nil {
			s.logOutcome(key, "hit", 200, s.now().Sub(start))
			return snapshot, nil
		}
		// A snapshot that no longer decodes is reconstructible from
		// upstream; treat it as a miss and let the upsert overwrite it.
		log.Warnf("[PlanCache] unreadable snapshot for %s, refetching: %v", key, err)
	}

	plans, fetchErr := s.fetcher.FetchPlans(ctx, tdspDuns, displayUsage)
	latency := s.now().Sub(start)

	if fetchErr != nil {
		s.logOutcome(key, "upstream_error", upstreamStatus(fetchErr), latency)
		if entry != nil {
			snapshot, err := snapshotFromEntry(entry, true, true)
			if err != nil {
				// Nothing servable; the upstream failure is the actionable
				// error, not the unreadable stale row.
				log.Warnf("[PlanCache] stale snapshot for %s is unreadable: %v", key, err)
				return nil, fetchErr
			}
			// Explicit degraded mode: upstream is down but we still hold an
			// expired snapshot for this key.
			log.Warnf("[PlanCache] upstream fetch failed for %s, serving stale snapshot cached at %s: %v",
				key, entry.CachedAt.Format(time.RFC3339), fetchErr)
			return snapshot, nil
		}
		return nil, fetchErr
	}

	cachedAt := s.now()
	plansJSON, err := json.Marshal(plans)
	if err != nil {
		return nil, err
	}

	fresh := &models.PlanCacheEntry{
		CacheKey:   key,
		TdspDuns:   tdspDuns,
		PlansData:  models.JSON(plansJSON),
		PlanCount:  len(plans),
		LowestRate: pricing.LowestRate(plans),
		CachedAt:   cachedAt,
		ExpiresAt:  cachedAt.Add(s.ttl),
	}

	if err := s.cache.Upsert(fresh); err != nil {
		// A fresh result is already in hand; failing to persist it only
		// costs the next caller a refetch.
		log.Warnf("[PlanCache] failed to persist snapshot for %s: %v", key, err)
	}

	s.logOutcome(key, "miss", 200, latency)

	return &Snapshot{
		CacheKey:   key,
		TdspDuns:   tdspDuns,
		Plans:      plans,
		PlanCount:  len(plans),
		LowestRate: pricing.LowestRate(plans),
		CachedAt:   cachedAt,
		ExpiresAt:  fresh.ExpiresAt,
	}, nil
}

func snapshotFromEntry(entry *models.PlanCacheEntry, fromCache, stale bool) (*Snapshot, error) {
	var plans []pricing.Plan
	if len(entry.PlansData) > 0 {
		if err := json.Unmarshal(entry.PlansData, &plans); err != nil {
			return nil, &apperrors.DatastoreError{Op: "plan_cache.decode", Err: err}
		}
	}
	return &Snapshot{
		CacheKey:   entry.CacheKey,
		TdspDuns:   entry.TdspDuns,
		Plans:      plans,
		PlanCount:  entry.PlanCount,
		LowestRate: entry.LowestRate,
		CachedAt:   entry.CachedAt,
		ExpiresAt:  entry.ExpiresAt,
		FromCache:  fromCache,
		Stale:      stale,
	}, nil
}

func (s *Service) logOutcome(key, outcome string, status int, latency time.Duration) {
	params, _ := json.Marshal(map[string]string{"cache_key": key, "outcome": outcome})
	err := s.apiLogs.Create(&models.ApiLog{
		Endpoint:       "/plans",
		Params:         string(params),
		ResponseStatus: status,
		ResponseTimeMs: int(latency.Milliseconds()),
	})
	if err != nil {
		log.Warnf("[PlanCache] failed to write api log for %s: %v", key, err)
	}
}

func upstreamStatus(err error) int {
	if fetchErr, ok := err.(*apperrors.UpstreamFetchError); ok && fetchErr.Status != 0 {
		return fetchErr.Status
	}
	return 0
}
