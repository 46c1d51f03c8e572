package widget

import (
	"time"

	"github.com/dtflabs/zapper/internal/state"
)

// NoticeLevel tells the host how to style a notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is one transient user-facing message. The host renders it in
// its toast area and owns display duration and dismissal.
type Notice struct {
	Level   NoticeLevel
	Title   string
	Message string
	At      time.Time
}

// Notices is the notification host feed. Quote failures and settlements
// are published here; hosts subscribe and render each notice.
type Notices struct {
	feed *state.Cell[Notice]
}

func NewNotices() *Notices {
	return &Notices{feed: state.NewCell(Notice{})}
}

// Publish pushes one notice to all subscribers.
func (n *Notices) Publish(level NoticeLevel, title, message string) {
	n.feed.Set(Notice{
		Level:   level,
		Title:   title,
		Message: message,
		At:      time.Now(),
	})
}

// Subscribe registers a renderer for incoming notices. The returned
// function cancels the subscription.
func (n *Notices) Subscribe(fn func(Notice)) func() {
	return n.feed.Subscribe(fn)
}

// Latest returns the most recent notice and whether one has been
// published yet.
func (n *Notices) Latest() (Notice, bool) {
	notice := n.feed.Get()
	return notice, !notice.At.IsZero()
}
