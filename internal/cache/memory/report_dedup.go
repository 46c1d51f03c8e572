package memory

import (
	"context"
	"sync"
	"time"
)

// ReportDedup remembers recently submitted report ids so repeat clicks on
// the report action do not spam the backend.
type ReportDedup struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewReportDedup() *ReportDedup {
	return &ReportDedup{seen: make(map[string]time.Time)}
}

// Mark records the id and reports whether this was its first appearance
// within the window.
func (d *ReportDedup) Mark(_ context.Context, id string, window time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if last, ok := d.seen[id]; ok && now.Sub(last) < window {
		return false, nil
	}
	d.seen[id] = now

	for k, ts := range d.seen {
		if now.Sub(ts) >= window {
			delete(d.seen, k)
		}
	}
	return true, nil
}
