package jwks

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/PaulFidika/supaguard/core"
	jwtkit "github.com/PaulFidika/supaguard/jwt"
)

// Document is a key-set document as fetched from the authority.
type Document struct {
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// KeySet is an immutable snapshot of the authority's published keys.
type KeySet struct {
	entries   map[string]jwtkit.KeyEntry
	fetchedAt time.Time
}

type keySetDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

// ParseKeySet builds a snapshot from a key-set document. A document that is not a JSON
// object with a "keys" array fails with core.ErrKeySetFetch.
func ParseKeySet(doc Document) (*KeySet, error) {
	var d keySetDocument
	if err := json.Unmarshal(doc.Body, &d); err != nil {
		return nil, fmt.Errorf("%w: malformed key set document", core.ErrKeySetFetch)
	}
	if d.Keys == nil {
		return nil, fmt.Errorf("%w: key set document has no keys member", core.ErrKeySetFetch)
	}
	entries := make(map[string]jwtkit.KeyEntry, len(d.Keys))
	for _, raw := range d.Keys {
		e, err := jwtkit.ParseKeyEntry(raw)
		if err != nil {
			return nil, err
		}
		if e.KID == "" {
			continue
		}
		// First entry wins on duplicate kids.
		if _, dup := entries[e.KID]; !dup {
			entries[e.KID] = e
		}
	}
	return &KeySet{entries: entries, fetchedAt: doc.FetchedAt}, nil
}

// Lookup returns the entry published under kid.
func (s *KeySet) Lookup(kid string) (jwtkit.KeyEntry, bool) {
	if s == nil {
		return jwtkit.KeyEntry{}, false
	}
	e, ok := s.entries[kid]
	return e, ok
}

func (s *KeySet) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns the entries sorted by kid.
func (s *KeySet) Entries() []jwtkit.KeyEntry {
	if s == nil {
		return nil
	}
	out := make([]jwtkit.KeyEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KID < out[j].KID })
	return out
}

// Age reports how long ago the snapshot was fetched.
func (s *KeySet) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt())
}

// JWKS re-encodes the decodable entries, sorted by kid.
func (s *KeySet) JWKS() jwtkit.JWKS {
	out := jwtkit.JWKS{Keys: []jwtkit.JWK{}}
	for _, e := range s.Entries() {
		if k, ok := e.JWK(); ok {
			out.Keys = append(out.Keys, k)
		}
	}
	return out
}
