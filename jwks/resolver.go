package jwks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulFidika/supaguard/core"
	jwtkit "github.com/PaulFidika/supaguard/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// RefetchBucket names the limiter bucket consulted before a miss-triggered refetch.
const RefetchBucket = "jwks_refetch"

// DocumentStore shares fetched documents between processes (e.g., Redis). Entries older
// than the staleness threshold are ignored. A store hands out key material the resolver
// trusts as the authority's, so it must authenticate what it returns.
type DocumentStore interface {
	Get(ctx context.Context, url string) (Document, bool, error)
	Put(ctx context.Context, url string, doc Document) error
}

// RateLimiter matches the memory and redis limiters.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// Resolver maps a key id to a verification key, fetching the authority's key-set on a cold
// or stale cache and refetching once when the id is unknown.
type Resolver struct {
	url        string
	cache      *Cache
	fetcher    Fetcher
	store      DocumentStore
	limiter    RateLimiter
	staleAfter time.Duration
	timeout    time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
	observer   core.Observer

	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithFetcher(f Fetcher) Option { return func(r *Resolver) { r.fetcher = f } }

// WithStore consults store before the network when the local snapshot is stale.
func WithStore(s DocumentStore) Option { return func(r *Resolver) { r.store = s } }

// WithRefetchLimiter caps miss-triggered refetches. When the limiter denies, the lookup
// fails with core.ErrKeyNotFound without touching the network.
func WithRefetchLimiter(l RateLimiter) Option { return func(r *Resolver) { r.limiter = l } }

func WithStaleAfter(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.staleAfter = d
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

func WithLogger(l logrus.FieldLogger) Option { return func(r *Resolver) { r.log = l } }

func WithObserver(o core.Observer) Option { return func(r *Resolver) { r.observer = o } }

// NewResolver builds a resolver for the key-set at url. A nil cache gets a fresh one.
func NewResolver(url string, cache *Cache, opts ...Option) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	r := &Resolver{
		url:        url,
		cache:      cache,
		staleAfter: core.DefaultCacheTTL,
		timeout:    core.DefaultFetchTimeout,
		now:        time.Now,
		log:        logrus.StandardLogger(),
		observer:   core.NopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fetcher == nil {
		r.fetcher = NewHTTPFetcher(r.timeout)
	}
	r.log = r.log.WithField("jwks_url", url)
	return r
}

func (r *Resolver) URL() string { return r.url }

// Snapshot returns the cached key-set without fetching. May be nil.
func (r *Resolver) Snapshot() *KeySet { return r.cache.Load() }

// Invalidate drops the cached key-set.
func (r *Resolver) Invalidate() { r.cache.Invalidate() }

// Resolve returns the verification key for kid. algHint (the token header's alg) is used
// only when the published entry omits its own alg.
func (r *Resolver) Resolve(ctx context.Context, kid, algHint string) (jwtkit.PublicKey, error) {
	if kid == "" {
		return jwtkit.PublicKey{}, fmt.Errorf("%w: header has no kid", core.ErrMalformedToken)
	}
	set, err := r.current(ctx)
	if err != nil {
		return jwtkit.PublicKey{}, err
	}
	if e, ok := set.Lookup(kid); ok {
		return e.PublicKey(algHint)
	}

	// The authority may have rotated since our snapshot: one refetch, never more.
	if !r.allowRefetch() {
		r.log.WithField("kid", kid).Warn("jwks: refetch suppressed by limiter")
		return jwtkit.PublicKey{}, fmt.Errorf("%w: kid %q", core.ErrKeyNotFound, kid)
	}
	r.log.WithField("kid", kid).Info("jwks: kid not in cached set, refetching")
	set, err = r.fetch(ctx, true)
	if err != nil {
		return jwtkit.PublicKey{}, err
	}
	if e, ok := set.Lookup(kid); ok {
		return e.PublicKey(algHint)
	}
	return jwtkit.PublicKey{}, fmt.Errorf("%w: kid %q", core.ErrKeyNotFound, kid)
}

// Refresh fetches the key-set from the network and replaces the cache.
func (r *Resolver) Refresh(ctx context.Context) (*KeySet, error) {
	return r.fetch(ctx, true)
}

func (r *Resolver) current(ctx context.Context) (*KeySet, error) {
	if set, ok := r.cache.Fresh(r.now(), r.staleAfter); ok {
		return set, nil
	}
	return r.fetch(ctx, false)
}

// fetch coalesces concurrent fetches. The shared call runs on a context detached from any
// single caller and bounded by the fetch timeout; each caller still honours its own ctx.
func (r *Resolver) fetch(ctx context.Context, network bool) (*KeySet, error) {
	key := "load"
	if network {
		key = "network"
	}
	ch := r.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.load(fctx, network)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", core.ErrKeySetFetch, ctx.Err())
	}
}

func (r *Resolver) load(ctx context.Context, network bool) (*KeySet, error) {
	if !network {
		// Another flight may have refreshed the cache while we queued.
		if set, ok := r.cache.Fresh(r.now(), r.staleAfter); ok {
			return set, nil
		}
		if set, ok := r.fromStore(ctx); ok {
			r.cache.Store(set)
			return set, nil
		}
	}

	start := time.Now()
	doc := Document{FetchedAt: r.now()}
	var set *KeySet
	body, err := r.fetcher.Fetch(ctx, r.url)
	if err == nil {
		doc.Body = body
		set, err = ParseKeySet(doc)
	}
	if err != nil && !errors.Is(err, core.ErrKeySetFetch) {
		err = fmt.Errorf("%w: %v", core.ErrKeySetFetch, err)
	}
	r.observer.KeySetFetched("network", set.Len(), time.Since(start), err)
	if err != nil {
		r.log.WithError(err).Warn("jwks: fetch failed")
		return nil, err
	}

	r.cache.Store(set)
	r.log.WithFields(logrus.Fields{
		"keys":    set.Len(),
		"elapsed": time.Since(start).String(),
	}).Debug("jwks: key set refreshed")

	if r.store != nil {
		if err := r.store.Put(ctx, r.url, doc); err != nil {
			r.log.WithError(err).Warn("jwks: failed to share key set")
		}
	}
	return set, nil
}

func (r *Resolver) fromStore(ctx context.Context) (*KeySet, bool) {
	if r.store == nil {
		return nil, false
	}
	start := time.Now()
	doc, ok, err := r.store.Get(ctx, r.url)
	if err != nil {
		r.log.WithError(err).Warn("jwks: shared store lookup failed")
		return nil, false
	}
	if !ok || r.now().Sub(doc.FetchedAt) > r.staleAfter {
		return nil, false
	}
	set, err := ParseKeySet(doc)
	r.observer.KeySetFetched("store", set.Len(), time.Since(start), err)
	if err != nil {
		r.log.WithError(err).Warn("jwks: discarding shared key set")
		return nil, false
	}
	return set, true
}

func (r *Resolver) allowRefetch() bool {
	if r.limiter == nil {
		return true
	}
	ok, err := r.limiter.AllowNamed(RefetchBucket, r.url)
	if err != nil {
		r.log.WithError(err).Warn("jwks: refetch limiter unavailable")
		return true
	}
	return ok
}
