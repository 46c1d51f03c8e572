// Package provider implements the quote source clients. Both providers map
// a QuoteRequest to a fully-qualified URL, issue the GET, and normalize the
// response into a domain.QuoteResult. Transport failures and application
// errors are distinguished so only the former are retried upstream.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtflabs/zapper/internal/domain"
)

const requestTimeout = 12 * time.Second

// QuoteProvider is one quote source. Endpoint returns false when no request
// is possible for the given inputs (missing signer, zero amount); that is
// not an error, it simply disables the fetch.
type QuoteProvider interface {
	Source() domain.Source
	Endpoint(req domain.QuoteRequest) (string, bool)
	Fetch(ctx context.Context, req domain.QuoteRequest, ids domain.TraceIDs) (domain.QuoteResult, error)
}

// TransportError marks a network or non-2xx HTTP failure. These are the
// only quote errors the orchestrator retries with backoff.
type TransportError struct {
	Source domain.Source
	Status int
	Cause  error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error: %d", titleSource(e.Source), e.Status)
	}
	return fmt.Sprintf("%s error: %v", titleSource(e.Source), e.Cause)
}

func titleSource(s domain.Source) string {
	str := string(s)
	if str == "" {
		return str
	}
	return strings.ToUpper(str[:1]) + str[1:]
}

func (e *TransportError) Unwrap() error { return e.Cause }

// QuoteError is an application-level failure: a 2xx response whose body
// carries status "error". It is surfaced immediately, never retried.
type QuoteError struct {
	Source domain.Source
	Msg    string
}

func (e *QuoteError) Error() string { return e.Msg }

// Retryable reports whether a fetch error may be retried by the polling
// layer.
func Retryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// baseURL yields the current API root so swapping the configured URL
// redirects all traffic without restart.
type baseURL func() string

func (b baseURL) join(path string) string {
	return strings.TrimRight(b(), "/") + path
}

// appendTrace attaches the trace identifiers to an endpoint so the backend
// can correlate the attempt. Ids are only attached when actually fetching.
func appendTrace(endpoint string, ids domain.TraceIDs) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if ids.SessionID != "" {
		q.Set("sessionId", ids.SessionID)
	}
	if ids.QuoteID != "" {
		q.Set("quoteId", ids.QuoteID)
	}
	if ids.RetryID != "" {
		q.Set("retryId", ids.RetryID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// doFetch issues the GET and normalizes the response. A non-2xx status or
// network failure becomes a TransportError; a 2xx body with status "error"
// becomes a QuoteError. Neither is ever allowed to escape as a panic or an
// untyped failure.
func doFetch(ctx context.Context, client *http.Client, source domain.Source, endpoint string) (domain.QuoteResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.QuoteResult{}, &TransportError{Source: source, Cause: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	res, err := client.Do(httpReq)
	if err != nil {
		return domain.QuoteResult{}, &TransportError{Source: source, Cause: err}
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return domain.QuoteResult{}, &TransportError{Source: source, Status: res.StatusCode}
	}

	var out domain.QuoteResult
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.QuoteResult{}, &TransportError{Source: source, Cause: fmt.Errorf("decode response: %w", err)}
	}
	out.Source = source

	if out.Status == "error" {
		return domain.QuoteResult{}, &QuoteError{Source: source, Msg: out.Err}
	}
	return out, nil
}
