package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticesStartEmpty(t *testing.T) {
	n := NewNotices()

	_, ok := n.Latest()
	assert.False(t, ok)
}

func TestNoticesDeliverToSubscribers(t *testing.T) {
	n := NewNotices()

	var got []Notice
	cancel := n.Subscribe(func(notice Notice) { got = append(got, notice) })

	n.Publish(NoticeError, "Quote failed", "No route found for this swap")
	require.Len(t, got, 1)
	assert.Equal(t, NoticeError, got[0].Level)
	assert.Equal(t, "Quote failed", got[0].Title)
	assert.Equal(t, "No route found for this swap", got[0].Message)
	assert.False(t, got[0].At.IsZero())

	latest, ok := n.Latest()
	require.True(t, ok)
	assert.Equal(t, got[0], latest)

	cancel()
	n.Publish(NoticeSuccess, "Zap settled", "0xabc")
	assert.Len(t, got, 1)

	latest, ok = n.Latest()
	require.True(t, ok)
	assert.Equal(t, NoticeSuccess, latest.Level)
}
