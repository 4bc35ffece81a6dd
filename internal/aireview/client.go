package aireview

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
)

// ReviewItem is one result line sent to the scoring service.
type ReviewItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// ReviewRequest is the scoring request payload.
type ReviewRequest struct {
	TestOrderID string            `json:"test_order_id"`
	Results     []ReviewItem      `json:"results"`
	Flags       []string          `json:"flags"`
	Meta        map[string]string `json:"meta"`
}

// Verdict is the scoring service's answer: one predicted status applied
// to every result, plus a free-text summary.
type Verdict struct {
	PredictedStatus string `json:"predicted_status"`
	Summary         string `json:"ai_summary"`
}

// Client calls the external AI scoring service.
type Client interface {
	Review(ctx context.Context, req ReviewRequest) (Verdict, error)
}

// HTTPClient calls the scoring endpoint over HTTP with a bounded timeout.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPClient(cfg config.AIReviewConfig) *HTTPClient {
	timeout := cfg.GetAIReviewTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.GetAIReviewBaseURL(),
		apiKey:  cfg.GetAIReviewAPIKey(),
		timeout: timeout,
		client:  &http.Client{},
	}
}

// Review posts the order's results for scoring. A non-success response
// is always an upstream error carrying the remote status and body; it is
// never coerced into a default verdict.
func (c *HTTPClient) Review(ctx context.Context, reviewReq ReviewRequest) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(reviewReq)
	if err != nil {
		return Verdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/review", bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, apperr.Upstream("ai review service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Verdict{}, apperr.Upstream(
			fmt.Sprintf("ai review service returned %d", resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, string(detail)),
		)
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return Verdict{}, apperr.Upstream("malformed ai review response", err)
	}
	if verdict.PredictedStatus == "" {
		return Verdict{}, apperr.Upstream("ai review response missing predicted status", nil)
	}

	return verdict, nil
}

var _ Client = (*HTTPClient)(nil)
