package supabasekit

import (
	"testing"
	"time"
)

func TestClaimSetAccessors(t *testing.T) {
	c := ClaimSet{
		"sub":           "0b7d6f4e-8a37-4b8e-9d8c-5c1a3f1e2b9a",
		"iss":           "https://abc.supabase.co/auth/v1",
		"role":          "authenticated",
		"email":         "ada@example.com",
		"phone":         "",
		"session_id":    "s1",
		"aal":           "aal2",
		"is_anonymous":  true,
		"exp":           float64(1767225600),
		"iat":           int64(1767222000),
		"app_metadata":  map[string]any{"provider": "github"},
		"user_metadata": map[string]any{"name": "Ada"},
	}
	if c.Issuer() != "https://abc.supabase.co/auth/v1" || c.Role() != "authenticated" || c.Email() != "ada@example.com" {
		t.Fatalf("string accessors: %v", c)
	}
	if c.SessionID() != "s1" || c.AuthenticatorAssurance() != "aal2" || !c.IsAnonymous() {
		t.Fatalf("session accessors: %v", c)
	}
	if !c.ExpiresAt().Equal(time.Unix(1767225600, 0)) || !c.IssuedAt().Equal(time.Unix(1767222000, 0)) {
		t.Fatalf("time accessors: %v %v", c.ExpiresAt(), c.IssuedAt())
	}
	id, err := c.SubjectUUID()
	if err != nil || id.String() != c.Subject() {
		t.Fatalf("subject uuid: %v %v", id, err)
	}
	if c.Provider() != "github" || c.UserMetadata()["name"] != "Ada" {
		t.Fatalf("metadata: %v", c)
	}
}

func TestClaimSetMissingValues(t *testing.T) {
	c := ClaimSet{"sub": 42, "exp": "soon"}
	if c.Subject() != "" || c.Provider() != "" || c.IsAnonymous() || !c.ExpiresAt().IsZero() {
		t.Fatalf("wrong-typed claims should read as zero values")
	}
	if _, err := c.SubjectUUID(); err == nil {
		t.Fatalf("expected error without subject")
	}
	if _, err := (ClaimSet{"sub": "not-a-uuid"}).SubjectUUID(); err == nil {
		t.Fatalf("expected parse error")
	}
}
