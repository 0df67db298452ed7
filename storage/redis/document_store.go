package redisstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/PaulFidika/supaguard/jwks"
	"github.com/redis/go-redis/v9"
)

// ErrDocumentUnsigned is returned by Get when a signing key is configured and the stored
// document carries no valid MAC for it.
var ErrDocumentUnsigned = errors.New("redisstore: stored key set failed authentication")

// DocumentStore shares fetched key-set documents between replicas so a fleet hits the
// authority once per staleness window instead of once per process.
//
// Redis sits outside the authority's trust boundary: whoever can write the key could
// publish a signing key of their own. With a signing key set, every document is stored
// with an HMAC-SHA256 over url, fetch time and body, and documents that fail the check
// are never returned.
type DocumentStore struct {
	rdb     redis.UniversalClient
	keyNS   string
	ttl     time.Duration
	signing []byte
}

type storedDocument struct {
	jwks.Document
	MAC []byte `json:"mac,omitempty"`
}

func NewDocumentStore(rdb redis.UniversalClient, keyPrefix string, ttl time.Duration) *DocumentStore {
	if keyPrefix == "" {
		keyPrefix = "auth:jwks:doc:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DocumentStore{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

// WithSigningKey authenticates stored documents with key. Replicas sharing a store must
// share the key.
func (s *DocumentStore) WithSigningKey(key []byte) *DocumentStore {
	s.signing = append([]byte(nil), key...)
	return s
}

func (s *DocumentStore) key(url string) string { return s.keyNS + url }

func (s *DocumentStore) mac(url string, doc jwks.Document) []byte {
	m := hmac.New(sha256.New, s.signing)
	m.Write([]byte(url))
	m.Write([]byte{0})
	m.Write([]byte(strconv.FormatInt(doc.FetchedAt.UnixNano(), 10)))
	m.Write([]byte{0})
	m.Write(doc.Body)
	return m.Sum(nil)
}

func (s *DocumentStore) Put(ctx context.Context, url string, doc jwks.Document) error {
	sd := storedDocument{Document: doc}
	if len(s.signing) > 0 {
		sd.MAC = s.mac(url, doc)
	}
	b, err := json.Marshal(sd)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(url), b, s.ttl).Err()
}

func (s *DocumentStore) Get(ctx context.Context, url string) (jwks.Document, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return jwks.Document{}, false, nil
	}
	if err != nil {
		return jwks.Document{}, false, err
	}
	var sd storedDocument
	if err := json.Unmarshal(val, &sd); err != nil {
		return jwks.Document{}, false, err
	}
	if len(s.signing) > 0 && !hmac.Equal(sd.MAC, s.mac(url, sd.Document)) {
		return jwks.Document{}, false, ErrDocumentUnsigned
	}
	return sd.Document, true, nil
}

func (s *DocumentStore) Del(ctx context.Context, url string) error {
	return s.rdb.Del(ctx, s.key(url)).Err()
}
