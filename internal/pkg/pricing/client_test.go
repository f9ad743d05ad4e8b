package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/choosemypower/ziproute/internal/pkg/apperrors"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
	}
}

func TestFetchPlans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plans" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("tdsp_duns"); got != "1039940674000" {
			t.Fatalf("unexpected tdsp_duns %q", got)
		}
		if got := r.URL.Query().Get("display_usage"); got != "1000" {
			t.Fatalf("unexpected display_usage %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"p1","name":"Saver 12","provider":{"name":"TXU","logo":"","rating":4.1,"reviewCount":200},"pricing":{"rate":0.129,"total":129.0}},
			{"id":"p2","name":"Value 24","provider":{"name":"Reliant","logo":"","rating":3.9,"reviewCount":80},"pricing":{"rate":0.112,"total":112.0}}
		]`))
	}))
	defer srv.Close()

	plans, err := newTestClient(srv.URL).FetchPlans(context.Background(), "1039940674000", 1000)
	assert.NoError(t, err)
	assert.Len(t, plans, 2)
	assert.Equal(t, "Saver 12", plans[0].Name)
	assert.Equal(t, "TXU", plans[0].Provider.Name)
	assert.InDelta(t, 0.112, LowestRate(plans), 0.0001)
}

func TestFetchPlansNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPlans(context.Background(), "1039940674000", 1000)
	if !apperrors.IsUpstreamFetch(err) {
		t.Fatalf("expected UpstreamFetchError, got %v", err)
	}
}

func TestFetchPlansEmptyArrayIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPlans(context.Background(), "1039940674000", 1000)
	if !apperrors.IsUpstreamFetch(err) {
		t.Fatalf("expected UpstreamFetchError for empty plan set, got %v", err)
	}
}

func TestFetchPlansUnreachableHost(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	_, err := client.FetchPlans(context.Background(), "1039940674000", 1000)
	if !apperrors.IsUpstreamFetch(err) {
		t.Fatalf("expected UpstreamFetchError, got %v", err)
	}
}

func TestLowestRateEmpty(t *testing.T) {
	assert.Equal(t, 0.0, LowestRate(nil))
}
