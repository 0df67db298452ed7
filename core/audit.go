package core

import "time"

// Observer receives verification events (e.g., Prometheus counters).
// Implementations must be non-blocking and safe for concurrent use.
type Observer interface {
	// KeySetFetched is called after every fetch attempt. source is "network" or "store".
	KeySetFetched(source string, keys int, elapsed time.Duration, err error)
	// TokenVerified is called once per Verify call with KindOf(err).
	TokenVerified(kind string, elapsed time.Duration)
}

// NopObserver discards events.
type NopObserver struct{}

func (NopObserver) KeySetFetched(string, int, time.Duration, error) {}
func (NopObserver) TokenVerified(string, time.Duration)             {}
