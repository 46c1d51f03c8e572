package orchestrator

import "time"

// backoff returns the delay before retry attempt n (0-based), doubling
// from base and capping at max.
func backoff(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
