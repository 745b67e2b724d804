// Package classifier is the HTTP client for the external risk
// classification oracle.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
)

// maxResponseBytes bounds how much of an oracle response is read; real
// assessments are tiny, so anything larger is already suspect.
const maxResponseBytes = 1 << 20

// Client implements domain.Classifier against a JSON-over-HTTP oracle.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an oracle client. The timeout bounds each individual
// classification attempt; retry policy belongs to the caller.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Classify sends the event fields to the oracle and parses its structured
// verdict. Output that is not parseable as an assessment is reported as a
// domain.MalformedResponseError carrying a raw excerpt, so the caller can
// tell a broken response from a transport failure.
func (c *Client) Classify(ctx context.Context, req domain.ClassificationRequest) (domain.RiskAssessment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("marshal classification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("read classifier response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.RiskAssessment{}, fmt.Errorf("classifier API error: status %d: %s", resp.StatusCode, rawExcerpt(raw))
	}

	var risk domain.RiskAssessment
	if err := json.Unmarshal(raw, &risk); err != nil {
		return domain.RiskAssessment{}, &domain.MalformedResponseError{Raw: rawExcerpt(raw), Err: err}
	}
	if risk.Severity == "" {
		// Parsed as JSON but not as an assessment, e.g. a free-text
		// analysis blob wrapped in an object.
		return domain.RiskAssessment{}, &domain.MalformedResponseError{
			Raw: rawExcerpt(raw),
			Err: fmt.Errorf("missing severity"),
		}
	}

	return risk, nil
}

func rawExcerpt(raw []byte) string {
	const limit = 200
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
