package memorylimiter

import (
	"fmt"
	"sync"
	"time"
)

// Limit caps how many events a bucket admits per key within Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultRefetchLimit admits one miss-triggered key-set refetch per authority every
// ten seconds, enough to absorb a rotation without letting junk kids hammer the authority.
var DefaultRefetchLimit = Limit{Limit: 1, Window: 10 * time.Second}

// Limiter is an in-memory sliding-window limiter for a single process.
type Limiter struct {
	mu     sync.Mutex
	limits map[string]Limit
	events map[string][]time.Time // oldest first
	now    func() time.Time
}

// New constructs a limiter. Buckets without an entry fall back to "default", then to
// DefaultRefetchLimit.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{limits: limits, events: make(map[string][]time.Time), now: time.Now}
}

// WithClock replaces the time source; tests only.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return DefaultRefetchLimit
}

// AllowNamed records an event for key in bucket and reports whether it fits the window.
// Denied events are not recorded.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("ratelimit: bucket and key required")
	}
	lim := l.limitFor(bucket)
	now := l.now()
	cutoff := now.Add(-lim.Window)
	id := bucket + "|" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.events[id]
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	ts = ts[i:]
	if len(ts) >= lim.Limit {
		l.events[id] = ts
		return false, nil
	}
	l.events[id] = append(ts, now)
	return true, nil
}

// Reset forgets every recorded event for key in bucket.
func (l *Limiter) Reset(bucket, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, bucket+"|"+key)
}
