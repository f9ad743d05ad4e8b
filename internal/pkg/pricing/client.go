package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/choosemypower/ziproute/internal/pkg/apperrors"
	"github.com/choosemypower/ziproute/internal/pkg/env"
)

const defaultPricingAPIBaseURL = "https://api.comparepower.com/api"

// Provider describes the retail electricity provider offering a plan.
type Provider struct {
	Name        string  `json:"name"`
	Logo        string  `json:"logo"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}

// PlanPricing carries the rate and monthly total at the requested usage tier.
type PlanPricing struct {
	Rate  float64 `json:"rate"`
	Total float64 `json:"total"`
}

// Plan is one retail plan as returned by the upstream pricing API.
type Plan struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Provider Provider    `json:"provider"`
	Pricing  PlanPricing `json:"pricing"`
}

// Client calls the upstream pricing API for a TDSP territory.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from PRICING_API_* environment variables.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("PRICING_API_BASE_URL", defaultPricingAPIBaseURL), "/"),
		APIKey:  strings.TrimSpace(env.GetEnv("PRICING_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchPlans fetches the plans deliverable in a TDSP territory at the given
// usage tier. A non-2xx status or an empty plan array both count as a fetch
// failure; the caller falls back to stale cache data where it can.
func (c *Client) FetchPlans(ctx context.Context, tdspDuns string, displayUsage int) ([]Plan, error) {
	endpoint := c.BaseURL + "/plans"

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICING_API_BASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("tdsp_duns", tdspDuns)
	q.Set("display_usage", strconv.Itoa(displayUsage))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &apperrors.UpstreamFetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &apperrors.UpstreamFetchError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	var plans []Plan
	if err := json.NewDecoder(resp.Body).Decode(&plans); err != nil {
		return nil, &apperrors.UpstreamFetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode plan response: %w", err)}
	}

	if len(plans) == 0 {
		return nil, &apperrors.UpstreamFetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("upstream returned no plans for tdsp %s", tdspDuns)}
	}

	return plans, nil
}

// LowestRate returns the cheapest rate across a plan set, 0 for an empty set.
func LowestRate(plans []Plan) float64 {
	if len(plans) == 0 {
		return 0
	}
	lowest := plans[0].Pricing.Rate
	for _, p := range plans[1:] {
		if p.Pricing.Rate < lowest {
			lowest = p.Pricing.Rate
		}
	}
	return lowest
}
