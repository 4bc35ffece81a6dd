package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"labportal_backend/platform/apperr"

	"github.com/google/uuid"
)

type gatewayConfig struct {
	baseURL string
}

func (c gatewayConfig) GetInstrumentBaseURL() string        { return c.baseURL }
func (c gatewayConfig) GetInstrumentAPIKey() string         { return "test-key" }
func (c gatewayConfig) GetInstrumentTimeout() time.Duration { return 2 * time.Second }
func (c gatewayConfig) GetInstrumentSourceSystem() string   { return "instrument-gw" }

func TestFetchRawResultsDecodesResponse(t *testing.T) {
	orderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/results/fetch" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}

		var req fetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.OrderID != orderID.String() || req.TestType != "CBC" {
			t.Errorf("request payload = %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"instrument":     "hematology-7",
			"performed_date": "2026-03-10T09:30:00Z",
			"results": []map[string]any{
				{"test_code": "WBC", "parameter": "White Blood Cells", "value": 6.1, "unit": "10^9/L"},
			},
		})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(gatewayConfig{baseURL: srv.URL})

	set, err := gw.FetchRawResults(context.Background(), orderID, "CBC")
	if err != nil {
		t.Fatalf("FetchRawResults: %v", err)
	}
	if set.Instrument != "hematology-7" || len(set.Items) != 1 {
		t.Fatalf("unexpected result set: %+v", set)
	}
	if set.Items[0].Value == nil || *set.Items[0].Value != 6.1 {
		t.Errorf("WBC value not decoded: %+v", set.Items[0])
	}
}

func TestFetchRawResultsNon2xxIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "warehouse unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(gatewayConfig{baseURL: srv.URL})

	_, err := gw.FetchRawResults(context.Background(), uuid.New(), "CBC")
	if apperr.GetKind(err) != apperr.KindUpstream {
		t.Fatalf("err = %v, want upstream", err)
	}
}

func TestFetchRawResultsEmptySetIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"instrument":     "hematology-7",
			"performed_date": "2026-03-10T09:30:00Z",
			"results":        []map[string]any{},
		})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(gatewayConfig{baseURL: srv.URL})

	_, err := gw.FetchRawResults(context.Background(), uuid.New(), "CBC")
	if apperr.GetKind(err) != apperr.KindUpstream {
		t.Fatalf("err = %v, want upstream for empty result set", err)
	}
}

func TestFetchRawResultsMissingPerformedDateIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"instrument": "hematology-7",
			"results": []map[string]any{
				{"test_code": "WBC", "parameter": "White Blood Cells", "value": 6.1},
			},
		})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(gatewayConfig{baseURL: srv.URL})

	_, err := gw.FetchRawResults(context.Background(), uuid.New(), "CBC")
	if apperr.GetKind(err) != apperr.KindUpstream {
		t.Fatalf("err = %v, want upstream for missing performed date", err)
	}
}
