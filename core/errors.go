package core

import "errors"

// Verification failures. Every error returned by the resolver or verifier wraps exactly one
// of these; messages never carry key material or token contents.
var (
	ErrMalformedToken       = errors.New("supaguard: malformed token")
	ErrKeyNotFound          = errors.New("supaguard: signing key not found")
	ErrUnsupportedAlgorithm = errors.New("supaguard: unsupported algorithm")
	ErrKeySetFetch          = errors.New("supaguard: key set fetch failed")
	ErrInvalidSignature     = errors.New("supaguard: invalid signature")
	ErrMissingClaims        = errors.New("supaguard: missing required claims")
	ErrInvalidAudience      = errors.New("supaguard: invalid audience")
	ErrTokenExpired         = errors.New("supaguard: token expired")
	ErrTokenNotYetValid     = errors.New("supaguard: token not yet valid")
	ErrInvalidIssuer        = errors.New("supaguard: invalid issuer")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrMalformedToken, "malformed_token"},
	{ErrKeyNotFound, "key_not_found"},
	{ErrUnsupportedAlgorithm, "unsupported_algorithm"},
	{ErrKeySetFetch, "key_set_fetch"},
	{ErrInvalidSignature, "invalid_signature"},
	{ErrMissingClaims, "missing_claims"},
	{ErrInvalidAudience, "invalid_audience"},
	{ErrTokenExpired, "token_expired"},
	{ErrTokenNotYetValid, "token_not_yet_valid"},
	{ErrInvalidIssuer, "invalid_issuer"},
}

// KindOf returns a stable label for logs and metrics: "ok" for nil, "unknown" for foreign errors.
func KindOf(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}

// IsUnavailable reports whether err reflects an outage of the key-set endpoint rather than a
// bad token. Callers should answer 503 instead of 401.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrKeySetFetch)
}
