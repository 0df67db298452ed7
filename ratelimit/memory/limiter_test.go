package memorylimiter

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSlidingWindow(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(map[string]Limit{"jwks_refetch": {Limit: 2, Window: 10 * time.Second}}).WithClock(clk.now)

	for i := 0; i < 2; i++ {
		if ok, err := l.AllowNamed("jwks_refetch", "u"); !ok || err != nil {
			t.Fatalf("attempt %d denied: %v", i, err)
		}
	}
	if ok, _ := l.AllowNamed("jwks_refetch", "u"); ok {
		t.Fatalf("third attempt allowed")
	}
	if ok, _ := l.AllowNamed("jwks_refetch", "other"); !ok {
		t.Fatalf("keys should be independent")
	}

	clk.advance(11 * time.Second)
	if ok, _ := l.AllowNamed("jwks_refetch", "u"); !ok {
		t.Fatalf("window did not slide")
	}

	l.Reset("jwks_refetch", "u")
	if ok, _ := l.AllowNamed("jwks_refetch", "u"); !ok {
		t.Fatalf("reset ignored")
	}
}

func TestDefaults(t *testing.T) {
	l := New(nil)
	if ok, _ := l.AllowNamed("any", "k"); !ok {
		t.Fatalf("first attempt denied")
	}
	if ok, _ := l.AllowNamed("any", "k"); ok {
		t.Fatalf("default limit should admit one attempt per window")
	}
	if _, err := l.AllowNamed("", "k"); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
	var nilLimiter *Limiter
	if ok, err := nilLimiter.AllowNamed("b", "k"); !ok || err != nil {
		t.Fatalf("nil limiter should allow")
	}
}

func TestDefaultBucket(t *testing.T) {
	l := New(map[string]Limit{"default": {Limit: 3, Window: time.Minute}})
	for i := 0; i < 3; i++ {
		if ok, _ := l.AllowNamed("x", "k"); !ok {
			t.Fatalf("attempt %d denied", i)
		}
	}
	if ok, _ := l.AllowNamed("x", "k"); ok {
		t.Fatalf("default bucket not applied")
	}
}
