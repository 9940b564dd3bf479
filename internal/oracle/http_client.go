package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opsdesk/triage-service/internal/config"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// HTTPClient talks JSON to an external inference service. Both oracles share
// the same transport; every call runs under the configured timeout, and a
// timeout surfaces as a retryable ORACLE_UNAVAILABLE error with no state
// written by the caller.
type HTTPClient struct {
	scoringURL  string
	draftingURL string
	client      *http.Client
}

// NewHTTPClient builds a client from oracle configuration.
func NewHTTPClient(cfg config.OracleConfig) *HTTPClient {
	return &HTTPClient{
		scoringURL:  cfg.ScoringURL,
		draftingURL: cfg.DraftingURL,
		client:      &http.Client{Timeout: cfg.Timeout()},
	}
}

type scoreRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Score implements ScoringOracle.
func (c *HTTPClient) Score(ctx context.Context, subject, body string) (*Scores, error) {
	var scores Scores
	if err := c.post(ctx, c.scoringURL, scoreRequest{Subject: subject, Body: body}, &scores); err != nil {
		return nil, errorutil.NewOracleUnavailable("scoring oracle unavailable", err)
	}
	if scores.Queue == "" {
		return nil, errorutil.NewOracleUnavailable("scoring oracle returned no queue", nil)
	}
	return &scores, nil
}

// Draft implements DraftingOracle.
func (c *HTTPClient) Draft(ctx context.Context, req DraftRequest) (*DraftResult, error) {
	var result DraftResult
	if err := c.post(ctx, c.draftingURL, req, &result); err != nil {
		return nil, errorutil.NewOracleUnavailable("drafting oracle unavailable", err)
	}
	if result.Body == "" {
		return nil, errorutil.NewOracleUnavailable("drafting oracle returned empty body", nil)
	}
	result.Confidence = clamp01(result.Confidence)
	return &result, nil
}

func (c *HTTPClient) post(ctx context.Context, url string, payload, dest any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("oracle call after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("oracle returned %d: %s", resp.StatusCode, snippet)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
