// Package trace generates and tracks the session, quote, retry, and source
// identifiers attached to every quote attempt and error report.
package trace

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/dtflabs/zapper/internal/domain"
)

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewQuoteID derives a deterministic identifier from the normalized quote
// tuple. Identical requests reproducibly share an id; changing any tuple
// field changes it.
func NewQuoteID(req domain.QuoteRequest) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(req.QuoteTuple())).String()
}

// NewSourceID derives a stable identifier for a quote source.
func NewSourceID(source domain.Source) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String()
}

// NewRetryID returns a unique, time-ordered identifier for one fetch
// attempt. UUIDv7 keeps ids monotonic across attempts.
func NewRetryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Entropy exhaustion is the only failure mode; fall back to random.
		return uuid.NewString()
	}
	return id.String()
}

// Tracker owns the trace identifiers for one widget instance. A session is
// regenerated on widget activation (inline mount or modal open) and on any
// wallet-address change after the first observed value.
type Tracker struct {
	mu sync.Mutex

	sessionID string
	quoteID   string
	retryID   string
	sourceID  string

	walletSeen bool
	lastWallet common.Address
}

// NewTracker returns an inactive tracker; Activate starts the first session.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Activate starts a fresh session. Called on inline mount, or on every
// modal-open transition in modal mode.
func (t *Tracker) Activate() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = NewSessionID()
	return t.sessionID
}

// ObserveWallet records a wallet address. The very first observed value
// does not regenerate the session; only subsequent changes do. It returns
// true when a new session was started.
func (t *Tracker) ObserveWallet(addr common.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.walletSeen {
		t.walletSeen = true
		t.lastWallet = addr
		return false
	}
	if t.lastWallet == addr {
		return false
	}
	t.lastWallet = addr
	t.sessionID = NewSessionID()
	return true
}

// BeginAttempt stamps a new quoteId/retryId pair for the given request and
// returns the full trace. It must be called before any network call for
// that attempt so the ids describe the attempt, not just the response.
func (t *Tracker) BeginAttempt(req domain.QuoteRequest) domain.TraceIDs {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quoteID = NewQuoteID(req)
	t.retryID = NewRetryID()
	return domain.TraceIDs{
		SessionID: t.sessionID,
		QuoteID:   t.quoteID,
		RetryID:   t.retryID,
		SourceID:  t.sourceID,
	}
}

// RecordAttempt installs the identifiers of the attempt whose outcome was
// published, so Current and Bundle reference the fetch the user is looking
// at rather than a concurrent loser's.
func (t *Tracker) RecordAttempt(ids domain.TraceIDs) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ids.QuoteID != "" {
		t.quoteID = ids.QuoteID
	}
	if ids.RetryID != "" {
		t.retryID = ids.RetryID
	}
}

// RecordSource stamps the winning source after selection.
func (t *Tracker) RecordSource(source domain.Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sourceID = NewSourceID(source)
}

// Current returns a snapshot of the trace identifiers.
func (t *Tracker) Current() domain.TraceIDs {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.TraceIDs{
		SessionID: t.sessionID,
		QuoteID:   t.quoteID,
		RetryID:   t.retryID,
		SourceID:  t.sourceID,
	}
}

// Bundle returns the copyable diagnostic string. It is only available once
// session, quote, and retry ids are all populated.
func (t *Tracker) Bundle() (string, bool) {
	ids := t.Current()
	if ids.SessionID == "" || ids.QuoteID == "" || ids.RetryID == "" {
		return "", false
	}
	return fmt.Sprintf("sessionId:%s-quoteId:%s-retryId:%s",
		ids.SessionID, ids.QuoteID, ids.RetryID), true
}
