package supabasekit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ClaimSet is the verified claim mapping of a token. The verifier keeps no reference to it.
type ClaimSet map[string]any

func (c ClaimSet) str(name string) string {
	if v, ok := c[name].(string); ok {
		return v
	}
	return ""
}

// Subject returns the sub claim (the authority's user id).
func (c ClaimSet) Subject() string { return c.str("sub") }

func (c ClaimSet) Issuer() string { return c.str("iss") }

// Role returns the role claim, typically "authenticated" or "anon".
func (c ClaimSet) Role() string { return c.str("role") }

func (c ClaimSet) Email() string { return c.str("email") }

func (c ClaimSet) Phone() string { return c.str("phone") }

func (c ClaimSet) SessionID() string { return c.str("session_id") }

// AuthenticatorAssurance returns the aal claim ("aal1", "aal2").
func (c ClaimSet) AuthenticatorAssurance() string { return c.str("aal") }

func (c ClaimSet) IsAnonymous() bool {
	b, _ := c["is_anonymous"].(bool)
	return b
}

// ExpiresAt returns the exp claim as a time. Claims decode numbers as float64.
func (c ClaimSet) ExpiresAt() time.Time {
	return c.unix("exp")
}

func (c ClaimSet) IssuedAt() time.Time {
	return c.unix("iat")
}

func (c ClaimSet) unix(name string) time.Time {
	switch v := c[name].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case int64:
		return time.Unix(v, 0)
	case int:
		return time.Unix(int64(v), 0)
	}
	return time.Time{}
}

// SubjectUUID parses sub as a UUID; the authority issues UUID user ids.
func (c ClaimSet) SubjectUUID() (uuid.UUID, error) {
	sub := c.Subject()
	if sub == "" {
		return uuid.Nil, errors.New("supaguard: token has no subject")
	}
	return uuid.Parse(sub)
}

// AppMetadata returns the app_metadata object, or nil.
func (c ClaimSet) AppMetadata() map[string]any {
	m, _ := c["app_metadata"].(map[string]any)
	return m
}

// UserMetadata returns the user_metadata object, or nil.
func (c ClaimSet) UserMetadata() map[string]any {
	m, _ := c["user_metadata"].(map[string]any)
	return m
}

// Provider returns app_metadata.provider (e.g. "google", "email").
func (c ClaimSet) Provider() string {
	if p, ok := c.AppMetadata()["provider"].(string); ok {
		return p
	}
	return ""
}
