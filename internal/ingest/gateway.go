package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"labportal_backend/platform/apperr"
	"labportal_backend/platform/config"

	"github.com/google/uuid"
)

// RawItem is one instrument-reported measurement. The status hint is
// advisory only; the flagging engine's computed flag is authoritative.
type RawItem struct {
	TestCode       string  `json:"test_code"`
	Parameter      string  `json:"parameter"`
	Value          *float64 `json:"value"`
	ValueText      string  `json:"value_text"`
	Unit           string  `json:"unit"`
	ReferenceRange string  `json:"reference_range"`
	StatusHint     string  `json:"status_hint"`
}

// RawResultSet is the warehouse response for one instrument run.
type RawResultSet struct {
	Instrument    string    `json:"instrument"`
	PerformedDate time.Time `json:"performed_date"`
	Items         []RawItem `json:"results"`
}

// Gateway fetches raw instrument results from the warehouse service.
// Failures, timeouts, and empty result sets are explicit errors — an
// empty-but-successful response would corrupt the dedup ledger.
type Gateway interface {
	FetchRawResults(ctx context.Context, orderID uuid.UUID, testType string) (RawResultSet, error)
}

// HTTPGateway calls the warehouse service over HTTP with a bounded timeout.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPGateway builds the warehouse gateway from configuration.
func NewHTTPGateway(cfg config.InstrumentGatewayConfig) *HTTPGateway {
	timeout := cfg.GetInstrumentTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{
		baseURL: cfg.GetInstrumentBaseURL(),
		apiKey:  cfg.GetInstrumentAPIKey(),
		timeout: timeout,
		client:  &http.Client{},
	}
}

type fetchRequest struct {
	OrderID  string `json:"order_id"`
	TestType string `json:"test_type"`
}

// FetchRawResults posts the fetch request and decodes the result set.
func (g *HTTPGateway) FetchRawResults(ctx context.Context, orderID uuid.UUID, testType string) (RawResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(fetchRequest{OrderID: orderID.String(), TestType: testType})
	if err != nil {
		return RawResultSet{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/v1/results/fetch", bytes.NewReader(body))
	if err != nil {
		return RawResultSet{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return RawResultSet{}, apperr.Upstream("instrument service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return RawResultSet{}, apperr.Upstream(
			fmt.Sprintf("instrument service returned %d", resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, string(detail)),
		)
	}

	var result RawResultSet
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return RawResultSet{}, apperr.Upstream("malformed instrument response", err)
	}

	if result.PerformedDate.IsZero() {
		return RawResultSet{}, apperr.Upstream("instrument response missing performed date", nil)
	}
	if len(result.Items) == 0 {
		return RawResultSet{}, apperr.Upstream("instrument returned no results for order", nil)
	}

	return result, nil
}

var _ Gateway = (*HTTPGateway)(nil)
