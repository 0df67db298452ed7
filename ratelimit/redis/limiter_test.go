package redislimiter

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, limits map[string]Limit) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, limits), mr
}

func TestAllowNamed(t *testing.T) {
	l, mr := newLimiter(t, map[string]Limit{"jwks_refetch": {Limit: 2, Window: 10 * time.Second}})
	base := time.Unix(1_700_000_000, 0)
	now := base
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		now = now.Add(time.Millisecond)
		if ok, err := l.AllowNamed("jwks_refetch", "u"); !ok || err != nil {
			t.Fatalf("attempt %d denied: %v", i, err)
		}
	}
	now = now.Add(time.Millisecond)
	if ok, err := l.AllowNamed("jwks_refetch", "u"); ok || err != nil {
		t.Fatalf("third attempt allowed: %v", err)
	}
	members, err := mr.ZMembers("auth:rl:jwks_refetch:u")
	if err != nil || len(members) != 2 {
		t.Fatalf("denied attempt should not be recorded: %v %v", members, err)
	}

	now = base.Add(11 * time.Second)
	if ok, _ := l.AllowNamed("jwks_refetch", "u"); !ok {
		t.Fatalf("window did not slide")
	}
}

func TestPrefixAndValidation(t *testing.T) {
	l, mr := newLimiter(t, nil)
	l.WithPrefix("supaguard:rl:")
	if ok, err := l.AllowNamed("b", "k"); !ok || err != nil {
		t.Fatalf("first attempt: %v %v", ok, err)
	}
	if !mr.Exists("supaguard:rl:b:k") {
		t.Fatalf("prefix not applied: %v", mr.Keys())
	}
	if _, err := l.AllowNamed("b", ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestUnavailable(t *testing.T) {
	l, mr := newLimiter(t, nil)
	mr.Close()
	if _, err := l.AllowNamed("b", "k"); err == nil {
		t.Fatalf("expected error with redis down")
	}
}
