package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesToCap(t *testing.T) {
	base := time.Second
	cap := 10 * time.Second

	assert.Equal(t, 1*time.Second, backoff(0, base, cap))
	assert.Equal(t, 2*time.Second, backoff(1, base, cap))
	assert.Equal(t, 4*time.Second, backoff(2, base, cap))
	assert.Equal(t, 8*time.Second, backoff(3, base, cap))
	assert.Equal(t, 10*time.Second, backoff(4, base, cap))
	assert.Equal(t, 10*time.Second, backoff(20, base, cap))
}

func TestBackoffBaseAboveCap(t *testing.T) {
	assert.Equal(t, time.Second, backoff(0, 5*time.Second, time.Second))
	assert.Equal(t, time.Second, backoff(3, 5*time.Second, time.Second))
}
