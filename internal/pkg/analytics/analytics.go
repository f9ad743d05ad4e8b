package analytics

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/choosemypower/ziproute/app/repository"
	"github.com/choosemypower/ziproute/internal/pkg/apperrors"
	"github.com/choosemypower/ziproute/internal/pkg/cache"
)

const (
	// Windows are clamped to [1h, 7d]; anything else is caller error.
	MinWindowHours = 1
	MaxWindowHours = 168

	topZipLimit = 10

	summaryCacheKey        = "analytics:zip-navigation:%dh:perf=%t"
	summaryCacheExpiration = 5 * time.Minute
)

// Summary is the aggregated view of ZIP navigation over a trailing window.
type Summary struct {
	WindowHours       int                          `json:"window_hours"`
	TotalEvents       int64                        `json:"total_events"`
	EventDistribution map[string]int64             `json:"event_distribution"`
	ErrorRate         float64                      `json:"error_rate"`
	TopZipCodes       []repository.ZipCount        `json:"top_zip_codes"`
	CoverageGaps      []repository.ZipCount        `json:"coverage_gaps"`
	Performance       *repository.PerformanceStats `json:"performance,omitempty"`
}

// Aggregator reduces navigation events and API logs into a Summary. It is
// read-only and tolerates events landing mid-aggregation; a just-written
// event missing from a concurrent summary is acceptable.
type Aggregator struct {
	events  repository.NavigationEventRepository
	apiLogs repository.ApiLogRepository

	now func() time.Time
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(events repository.NavigationEventRepository, apiLogs repository.ApiLogRepository) *Aggregator {
	return &Aggregator{
		events:  events,
		apiLogs: apiLogs,
		now:     time.Now,
	}
}

// Summarize aggregates the trailing windowHours of navigation activity.
// windowHours must be within [1, 168].
func (a *Aggregator) Summarize(windowHours int, includePerformance bool) (*Summary, error) {
	if windowHours < MinWindowHours || windowHours > MaxWindowHours {
		return nil, &apperrors.InvalidInputError{
			Field:  "hours",
			Reason: fmt.Sprintf("must be between %d and %d", MinWindowHours, MaxWindowHours),
		}
	}

	since := a.now().Add(-time.Duration(windowHours) * time.Hour)

	total, err := a.events.CountSince(since)
	if err != nil {
		return nil, &apperrors.DatastoreError{Op: "navigation_events.count", Err: err}
	}

	errorCount, err := a.events.ErrorCountSince(since)
	if err != nil {
		return nil, &apperrors.DatastoreError{Op: "navigation_events.error_count", Err: err}
	}

	distribution, err := a.events.EventTypeCountsSince(since)
	if err != nil {
		return nil, &apperrors.DatastoreError{Op: "navigation_events.distribution", Err: err}
	}

	topZips, err := a.events.TopZipsSince(since, topZipLimit)
	if err != nil {
		return nil, &apperrors.DatastoreError{Op: "navigation_events.top_zips", Err: err}
	}

	gaps, err := a.events.CoverageGapsSince(since, topZipLimit)
	if err != nil {
		return nil, &apperrors.DatastoreError{Op: "navigation_events.coverage_gaps", Err: err}
	}

	summary := &Summary{
		WindowHours:       windowHours,
		TotalEvents:       total,
		EventDistribution: distribution,
		ErrorRate:         errorRate(errorCount, total),
		TopZipCodes:       topZips,
		CoverageGaps:      gaps,
	}

	if includePerformance {
		perf, err := a.apiLogs.PerformanceSince(since)
		if err != nil {
			return nil, &apperrors.DatastoreError{Op: "api_logs.performance", Err: err}
		}
		summary.Performance = perf
	}

	return summary, nil
}

// SummarizeCached serves Summarize through the Redis summary cache. Summaries
// tolerate minutes-scale staleness, so a cached copy is good enough; any
// cache failure falls back to a live aggregation.
func (a *Aggregator) SummarizeCached(windowHours int, includePerformance bool) (*Summary, error) {
	if windowHours < MinWindowHours || windowHours > MaxWindowHours {
		return nil, &apperrors.InvalidInputError{
			Field:  "hours",
			Reason: fmt.Sprintf("must be between %d and %d", MinWindowHours, MaxWindowHours),
		}
	}

	key := fmt.Sprintf(summaryCacheKey, windowHours, includePerformance)

	var cached Summary
	if err := cache.GetJSON(key, &cached); err == nil {
		return &cached, nil
	}

	summary, err := a.Summarize(windowHours, includePerformance)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(key, summary, summaryCacheExpiration); err != nil {
		log.Warnf("[Analytics] failed to cache summary %s: %v", key, err)
	}

	return summary, nil
}

func errorRate(errors, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(errors) / float64(total)
}
