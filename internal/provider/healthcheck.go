package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// HealthMonitor polls the zapper healthcheck endpoint and exposes the
// last known per-chain health. It fails open: an unreachable or stale
// healthcheck never blocks quoting.
type HealthMonitor struct {
	base     baseURL
	http     *http.Client
	logger   *slog.Logger
	interval time.Duration
	maxAge   time.Duration

	mu        sync.RWMutex
	statuses  map[uint64]bool
	fetchedAt time.Time
}

// chainStatus is one element of the healthcheck response array.
type chainStatus struct {
	ChainID uint64 `json:"chainId"`
	OK      bool   `json:"ok"`
}

func NewHealthMonitor(base func() string, interval, maxAge time.Duration, logger *slog.Logger) *HealthMonitor {
	return &HealthMonitor{
		base:     baseURL(base),
		http:     &http.Client{Timeout: requestTimeout},
		logger:   logger.With(slog.String("component", "healthcheck")),
		interval: interval,
		maxAge:   maxAge,
		statuses: make(map[uint64]bool),
	}
}

// Run polls until ctx is cancelled. Call in its own goroutine.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *HealthMonitor) poll(ctx context.Context) {
	endpoint := m.base.join("/zapper/healthcheck")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		m.logger.Warn("healthcheck request build failed", slog.String("error", err.Error()))
		return
	}
	resp, err := m.http.Do(req)
	if err != nil {
		m.logger.Warn("healthcheck unreachable", slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn("healthcheck bad status", slog.Int("status", resp.StatusCode))
		return
	}

	var payload []chainStatus
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		m.logger.Warn("healthcheck decode failed", slog.String("error", err.Error()))
		return
	}

	statuses := make(map[uint64]bool, len(payload))
	for _, s := range payload {
		statuses[s.ChainID] = s.OK
	}

	m.mu.Lock()
	m.statuses = statuses
	m.fetchedAt = time.Now()
	m.mu.Unlock()
}

// Healthy reports whether quoting on the chain is currently advisable.
// Missing data, a stale poll, or an unknown chain all report healthy.
func (m *HealthMonitor) Healthy(chainID uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.fetchedAt.IsZero() || time.Since(m.fetchedAt) > m.maxAge {
		return true
	}
	healthy, ok := m.statuses[chainID]
	if !ok {
		return true
	}
	return healthy
}
