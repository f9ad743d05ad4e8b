package apiv1

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/choosemypower/ziproute/app/models"
	"github.com/choosemypower/ziproute/app/repository"
	"github.com/choosemypower/ziproute/internal/pkg/analytics"
	"github.com/choosemypower/ziproute/internal/pkg/apperrors"
	"github.com/choosemypower/ziproute/internal/pkg/metrics/counter"
	"github.com/choosemypower/ziproute/internal/pkg/plancache"
	"github.com/choosemypower/ziproute/internal/pkg/pricing"
	"github.com/choosemypower/ziproute/internal/pkg/routing"
)

// APIServer holds the service dependencies behind the JSON API.
type APIServer struct {
	resolver   *routing.Resolver
	plans      *plancache.Service
	aggregator *analytics.Aggregator
	events     repository.NavigationEventRepository

	// cacheSummaries switches the analytics endpoint to the Redis-backed
	// summary cache; tests run against the live aggregation instead.
	cacheSummaries bool

	// countLookups enables the Redis popularity counter on the resolve path.
	countLookups bool
}

// NewAPIServer creates the API server over the global repositories.
func NewAPIServer() *APIServer {
	repos := repository.GetGlobalRepositories()
	return &APIServer{
		resolver:       routing.NewResolver(repos.ZipMapping),
		plans:          plancache.NewServiceFromEnv(repos.PlanCache, repos.ApiLog, pricing.NewClientFromEnv()),
		aggregator:     analytics.NewAggregator(repos.NavigationEvent, repos.ApiLog),
		events:         repos.NavigationEvent,
		cacheSummaries: true,
		countLookups:   true,
	}
}

// NewAPIServerWithDeps wires explicit dependencies, used by tests.
func NewAPIServerWithDeps(resolver *routing.Resolver, plans *plancache.Service, aggregator *analytics.Aggregator, events repository.NavigationEventRepository) *APIServer {
	return &APIServer{
		resolver:   resolver,
		plans:      plans,
		aggregator: aggregator,
		events:     events,
	}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ping": "pong",
	})
}

// GetResolveZip resolves a ZIP code to its city page and TDSP territory.
// Every attempt, success or failure, is recorded as a navigation event; the
// resolver itself stays a pure lookup.
func (s *APIServer) GetResolveZip(c *fiber.Ctx) error {
	zip := c.Params("zip")
	address := c.Query("address")

	resolution, err := s.resolver.Resolve(zip, address)
	if err != nil {
		var invalid *apperrors.InvalidInputError
		if errors.As(err, &invalid) {
			s.recordEvent(zip, models.EventZipInvalid, true)
			return errorResponse(c, fiber.StatusBadRequest, apperrors.CodeInvalidParameter, invalid.Error())
		}
		var gap *apperrors.CoverageGapError
		if errors.As(err, &gap) {
			s.recordEvent(zip, models.EventZipCoverageGap, true)
			return errorResponse(c, fiber.StatusNotFound, apperrors.CodeZipNotFound, gap.Error())
		}
		log.Errorf("[API] zip resolution failed for %q: %v", zip, err)
		return errorResponse(c, fiber.StatusInternalServerError, apperrors.CodeDatastoreError, "zip lookup failed")
	}

	eventType := models.EventZipResolved
	if !resolution.IsDeregulated {
		// Regulated territory: the frontend shows a notice, not plans.
		eventType = models.EventZipRegulated
	}
	s.recordEvent(zip, eventType, false)
	s.countLookup(zip)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    resolution,
	})
}

// GetPlans serves the cached plan snapshot for a TDSP territory.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	tdspDuns := c.Query("tdsp_duns")
	if tdspDuns == "" {
		return errorResponse(c, fiber.StatusBadRequest, apperrors.CodeInvalidParameter, "tdsp_duns is required")
	}

	displayUsage := 1000
	if raw := c.Query("display_usage"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return errorResponse(c, fiber.StatusBadRequest, apperrors.CodeInvalidParameter, "display_usage must be a positive integer")
		}
		displayUsage = parsed
	}

	snapshot, err := s.plans.GetOrFetch(c.Context(), tdspDuns, displayUsage)
	if err != nil {
		if apperrors.IsUpstreamFetch(err) {
			log.Warnf("[API] plan fetch failed for tdsp %s: %v", tdspDuns, err)
			return errorResponse(c, fiber.StatusBadGateway, apperrors.CodeUpstreamError, "pricing service unavailable")
		}
		log.Errorf("[API] plan lookup failed for tdsp %s: %v", tdspDuns, err)
		return errorResponse(c, fiber.StatusInternalServerError, apperrors.CodeDatastoreError, "plan lookup failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    snapshot,
	})
}

// GetZipNavigationAnalytics serves the aggregated ZIP navigation insights
// for a trailing window of 1 to 168 hours.
func (s *APIServer) GetZipNavigationAnalytics(c *fiber.Ctx) error {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, apperrors.CodeInvalidParameter, "hours must be an integer between 1 and 168")
		}
		hours = parsed
	}
	includePerformance := c.Query("performance") == "true"

	summarize := s.aggregator.Summarize
	if s.cacheSummaries {
		summarize = s.aggregator.SummarizeCached
	}

	summary, err := summarize(hours, includePerformance)
	if err != nil {
		var invalid *apperrors.InvalidInputError
		if errors.As(err, &invalid) {
			return errorResponse(c, fiber.StatusBadRequest, apperrors.CodeInvalidParameter, invalid.Error())
		}
		log.Errorf("[API] analytics aggregation failed: %v", err)
		return errorResponse(c, fiber.StatusInternalServerError, apperrors.CodeAnalyticsError, "failed to aggregate zip navigation analytics")
	}

	now := time.Now().UTC()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"timeRange": fiber.Map{
				"hours": summary.WindowHours,
				"start": now.Add(-time.Duration(summary.WindowHours) * time.Hour).Format(time.RFC3339),
				"end":   now.Format(time.RFC3339),
			},
			"insights": fiber.Map{
				"totalEvents":       summary.TotalEvents,
				"eventDistribution": summary.EventDistribution,
				"errorRate":         summary.ErrorRate,
				"topZIPCodes":       summary.TopZipCodes,
				"coverageGaps":      summary.CoverageGaps,
				"performance":       summary.Performance,
			},
		},
	})
}

// countLookup bumps the ZIP popularity counter in Redis. The job queue
// flushes the counters to the mapping table in batches.
func (s *APIServer) countLookup(zip string) {
	if !s.countLookups {
		return
	}
	if err := counter.AddZipLookup(zip); err != nil {
		log.Debugf("[API] failed to count zip lookup for %q: %v", zip, err)
	}
}

func (s *APIServer) recordEvent(zip, eventType string, isError bool) {
	err := s.events.Create(&models.NavigationEvent{
		ZipCode:   zip,
		EventType: eventType,
		IsError:   isError,
	})
	if err != nil {
		// Event logging is observability only; never fail the request on it.
		log.Warnf("[API] failed to record navigation event for %q: %v", zip, err)
	}
}

func errorResponse(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}
