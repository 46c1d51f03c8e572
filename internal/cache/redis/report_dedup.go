package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportDedup implements domain.ReportDedup with SET NX, so the dedup
// window holds across widget instances sharing the Redis.
type ReportDedup struct {
	rdb *redis.Client
}

func NewReportDedup(c *Client) *ReportDedup {
	return &ReportDedup{rdb: c.Underlying()}
}

func reportKey(id string) string {
	return "report:" + id
}

// Mark claims the report id for the window. It returns true when this
// call was the first claimant.
func (rd *ReportDedup) Mark(ctx context.Context, id string, window time.Duration) (bool, error) {
	first, err := rd.rdb.SetNX(ctx, reportKey(id), 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark report %s: %w", id, err)
	}
	return first, nil
}
