package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtflabs/zapper/internal/cache/memory"
	"github.com/dtflabs/zapper/internal/domain"
)

func completeReport() Report {
	return Report{
		SessionID: "sess",
		QuoteID:   "quote",
		RetryID:   "retry",
		Error:     "Zap error: 500",
		TokenIn:   ReportToken{Address: "0x1111111111111111111111111111111111111111", Symbol: "WETH"},
		TokenOut:  ReportToken{Address: "0x2222222222222222222222222222222222222222", Symbol: "DTF"},
		Amount:    "1000000000000000000",
	}
}

func TestReporterSubmit(t *testing.T) {
	var got Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/zapper/report", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	rep := NewReporter(staticBase(srv.URL), memory.NewReportDedup())
	require.NoError(t, rep.Submit(context.Background(), completeReport()))
	assert.Equal(t, "sess", got.SessionID)
	assert.Equal(t, "WETH", got.TokenIn.Symbol)
}

func TestReporterRejectsIncompleteTrace(t *testing.T) {
	rep := NewReporter(staticBase("https://api.reserve.org/"), memory.NewReportDedup())

	r := completeReport()
	r.RetryID = ""
	assert.ErrorIs(t, rep.Submit(context.Background(), r), domain.ErrIncompleteTrace)
}

func TestReporterDeduplicates(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls++
	}))
	defer srv.Close()

	rep := NewReporter(staticBase(srv.URL), memory.NewReportDedup())
	require.NoError(t, rep.Submit(context.Background(), completeReport()))
	assert.ErrorIs(t, rep.Submit(context.Background(), completeReport()), domain.ErrDuplicateReport)
	assert.Equal(t, 1, calls)
}

func TestReporterSurfacesBackendRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rep := NewReporter(staticBase(srv.URL), memory.NewReportDedup())
	err := rep.Submit(context.Background(), completeReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHealthMonitorFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewHealthMonitor(staticBase("https://api.reserve.org/"), time.Minute, 2*time.Minute, logger)

	// No poll has happened yet.
	assert.True(t, m.Healthy(1))
}

func TestHealthMonitorReportsPolledState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zapper/healthcheck", r.URL.Path)
		w.Write([]byte(`[{"chainId":1,"ok":true},{"chainId":8453,"ok":false}]`))
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewHealthMonitor(staticBase(srv.URL), time.Minute, 2*time.Minute, logger)
	m.poll(context.Background())

	assert.True(t, m.Healthy(1))
	assert.False(t, m.Healthy(8453))
	// Unknown chains fail open.
	assert.True(t, m.Healthy(42161))
}

func TestHealthMonitorIgnoresBadResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewHealthMonitor(staticBase(srv.URL), time.Minute, 2*time.Minute, logger)
	m.poll(context.Background())

	// The failed poll leaves the monitor failing open.
	assert.True(t, m.Healthy(1))
}

func TestHealthMonitorIgnoresMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"chainId":1,"ok":true}`))
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewHealthMonitor(staticBase(srv.URL), time.Minute, 2*time.Minute, logger)
	m.poll(context.Background())

	// A body that is not the expected array is discarded, failing open.
	assert.True(t, m.Healthy(1))
	assert.True(t, m.Healthy(8453))
}
