// Package widget implements the host-facing controller surface: modal
// visibility, tab selection, and the session lifecycle rules tied to
// them.
package widget

import (
	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/state"
	"github.com/dtflabs/zapper/internal/trace"
	"github.com/dtflabs/zapper/internal/track"
)

// Mode is how the widget is embedded.
type Mode string

const (
	ModeModal  Mode = "modal"
	ModeInline Mode = "inline"
)

// Controller exposes the host's programmatic handle on the widget. In
// modal mode every open starts a fresh session; in inline mode the
// session starts once at mount.
type Controller struct {
	mode    Mode
	store   *state.Store
	trace   *trace.Tracker
	tracker track.Tracker
}

func NewController(mode Mode, store *state.Store, tr *trace.Tracker, tracker track.Tracker) *Controller {
	if tracker == nil {
		tracker = track.Noop{}
	}
	c := &Controller{mode: mode, store: store, trace: tr, tracker: tracker}
	if mode == ModeInline {
		c.trace.Activate()
	}
	return c
}

// IsOpen reports modal visibility. Inline widgets are always open.
func (c *Controller) IsOpen() bool {
	if c.mode == ModeInline {
		return true
	}
	return c.store.ModalOpen.Get()
}

// Open shows the modal and starts a fresh session.
func (c *Controller) Open() {
	if c.mode == ModeInline || c.store.ModalOpen.Get() {
		return
	}
	c.store.ModalOpen.Set(true)
	c.trace.Activate()
	c.tracker.Track(track.EventWidgetOpen, nil)
}

// Close hides the modal. The session id survives until the next open.
func (c *Controller) Close() {
	if c.mode == ModeInline || !c.store.ModalOpen.Get() {
		return
	}
	c.store.ModalOpen.Set(false)
	c.tracker.Track(track.EventWidgetClose, nil)
}

// Toggle flips modal visibility.
func (c *Controller) Toggle() {
	if c.IsOpen() {
		c.Close()
	} else {
		c.Open()
	}
}

// CurrentTab returns the active buy/sell tab.
func (c *Controller) CurrentTab() domain.Tab {
	return c.store.Tab.Get()
}

// SetTab switches the buy/sell direction.
func (c *Controller) SetTab(tab domain.Tab) {
	if tab != domain.TabBuy && tab != domain.TabSell {
		return
	}
	c.store.Tab.Set(tab)
}
