package redislimiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit caps how many events a bucket admits per key within Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is a sliding-window limiter shared by every replica through Redis sorted sets,
// so a fleet refetches a rotated key-set a bounded number of times in total.
type Limiter struct {
	rdb     redis.UniversalClient
	prefix  string
	timeout time.Duration
	limits  map[string]Limit
	now     func() time.Time
}

func New(rdb redis.UniversalClient, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{rdb: rdb, prefix: "auth:rl:", timeout: 2 * time.Second, limits: limits, now: time.Now}
}

// WithPrefix namespaces the sorted-set keys.
func (l *Limiter) WithPrefix(p string) *Limiter {
	l.prefix = p
	return l
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 1, Window: 10 * time.Second}
}

// AllowNamed records an event for key in bucket and reports whether it fits the window.
// Redis errors are returned to the caller, which decides whether to fail open.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("ratelimit: bucket and key required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	lim := l.limitFor(bucket)
	now := l.now()
	member := strconv.FormatInt(now.UnixNano(), 10)
	cutoff := strconv.FormatInt(now.Add(-lim.Window).UnixMicro(), 10)
	zkey := l.prefix + bucket + ":" + key

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, zkey, "-inf", cutoff)
	pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	count := pipe.ZCard(ctx, zkey)
	pipe.PExpire(ctx, zkey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if count.Val() > int64(lim.Limit) {
		// Over the cap: take back this attempt so denials do not extend the window.
		if err := l.rdb.ZRem(ctx, zkey, member).Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
