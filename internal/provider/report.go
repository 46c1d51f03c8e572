package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dtflabs/zapper/internal/domain"
)

const reportDedupWindow = 5 * time.Minute

// ReportToken is the token shape the report endpoint expects.
type ReportToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

// Report is a user-initiated failed-zap report. All three trace ids must
// be present so the backend can correlate it with request logs.
type Report struct {
	SessionID string      `json:"sessionId"`
	QuoteID   string      `json:"quoteId"`
	RetryID   string      `json:"retryId"`
	Error     string      `json:"error"`
	TokenIn   ReportToken `json:"tokenIn"`
	TokenOut  ReportToken `json:"tokenOut"`
	Amount    string      `json:"amount"`
	Value     *float64    `json:"value,omitempty"`
}

// Reporter posts failed-zap reports, deduplicating repeat submissions of
// the same quote attempt within a short window.
type Reporter struct {
	base  baseURL
	http  *http.Client
	dedup domain.ReportDedup
}

func NewReporter(base func() string, dedup domain.ReportDedup) *Reporter {
	return &Reporter{
		base:  baseURL(base),
		http:  &http.Client{Timeout: requestTimeout},
		dedup: dedup,
	}
}

// Submit validates and sends the report. A report with missing trace ids
// is rejected with ErrIncompleteTrace; a repeat submission for the same
// retry id within the dedup window returns ErrDuplicateReport.
func (r *Reporter) Submit(ctx context.Context, report Report) error {
	if report.SessionID == "" || report.QuoteID == "" || report.RetryID == "" {
		return domain.ErrIncompleteTrace
	}

	if r.dedup != nil {
		first, err := r.dedup.Mark(ctx, report.RetryID, reportDedupWindow)
		if err != nil {
			return fmt.Errorf("provider: report dedup: %w", err)
		}
		if !first {
			return domain.ErrDuplicateReport
		}
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("provider: marshal report: %w", err)
	}

	endpoint := r.base.join("/zapper/report")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("provider: build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider: send report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider: report rejected with status %d", resp.StatusCode)
	}
	return nil
}
