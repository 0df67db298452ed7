package jwtkit

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Signer issues asymmetric JWTs. Verification never needs one; signers back the test
// authority and local tooling that mints tokens shaped like the authority's.
type Signer interface {
	// Algorithm returns the JWS algorithm (RS256, ES256 or EdDSA).
	Algorithm() string
	// KID returns the key id stamped into the header.
	KID() string
	// Public returns the published form of the verification key.
	Public() JWK
	// Sign creates a signed JWT with provided claims.
	Sign(ctx context.Context, claims jwt.MapClaims) (token string, err error)
}

type keySigner struct {
	method jwt.SigningMethod
	key    crypto.Signer
	kid    string
	jwk    JWK
}

func (s *keySigner) Algorithm() string { return s.method.Alg() }
func (s *keySigner) KID() string       { return s.kid }
func (s *keySigner) Public() JWK       { return s.jwk }

func (s *keySigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)
	token.Header["kid"] = s.kid
	return token.SignedString(s.key)
}

// NewRSASigner generates an RS256 signer. bits defaults to 2048.
func NewRSASigner(bits int, kid string) (Signer, error) {
	if bits == 0 {
		bits = 2048
	}
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &keySigner{
		method: jwt.SigningMethodRS256,
		key:    k,
		kid:    kid,
		jwk:    RSAPublicToJWK(&k.PublicKey, kid, jwt.SigningMethodRS256.Alg()),
	}, nil
}

// NewECSigner generates an ES256 (P-256) signer, the authority's default key type.
func NewECSigner(kid string) (Signer, error) {
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &keySigner{
		method: jwt.SigningMethodES256,
		key:    k,
		kid:    kid,
		jwk:    ECPublicToJWK(&k.PublicKey, kid, jwt.SigningMethodES256.Alg()),
	}, nil
}

// NewEd25519Signer generates an EdDSA signer.
func NewEd25519Signer(kid string) (Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &keySigner{
		method: jwt.SigningMethodEdDSA,
		key:    priv,
		kid:    kid,
		jwk:    Ed25519PublicToJWK(pub, kid),
	}, nil
}

// NewSigner generates a signer for one of the accepted algorithms.
func NewSigner(alg, kid string) (Signer, error) {
	switch alg {
	case "RS256":
		return NewRSASigner(2048, kid)
	case "ES256":
		return NewECSigner(kid)
	case "EdDSA":
		return NewEd25519Signer(kid)
	default:
		return nil, errors.New("jwtkit: no signer for algorithm " + alg)
	}
}

// SessionClaims builds the claim layout the authority uses for end-user sessions.
func SessionClaims(issuer, subject string, ttl time.Duration) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":  issuer,
		"sub":  subject,
		"aud":  "authenticated",
		"role": "authenticated",
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
}
