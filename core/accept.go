package core

import (
	"errors"
	"strings"
	"time"
)

// Algorithms accepted for end-user tokens. Anything else is rejected before a key is used.
const (
	AlgRS256 = "RS256"
	AlgES256 = "ES256"
	AlgEdDSA = "EdDSA"
)

// DefaultAudience is the aud value the authority stamps on end-user session tokens.
const DefaultAudience = "authenticated"

const (
	DefaultCacheTTL     = 10 * time.Minute
	DefaultFetchTimeout = 10 * time.Second
)

// AcceptConfig configures verification of tokens issued by a single authority.
type AcceptConfig struct {
	AuthorityURL string
	Issuer       string
	Audience     string // single expected value; see DESIGN.md before widening
	JWKSURL      string
	Algorithms   []string
	Skew         time.Duration
	CacheTTL     time.Duration // staleness threshold for the cached key-set
	FetchTimeout time.Duration
}

// SupabaseAccept derives the issuer and JWKS endpoint from the authority base URL.
func SupabaseAccept(authorityURL string) AcceptConfig {
	base := strings.TrimRight(strings.TrimSpace(authorityURL), "/")
	return AcceptConfig{
		AuthorityURL: base,
		Issuer:       base + "/auth/v1",
		Audience:     DefaultAudience,
		JWKSURL:      base + "/auth/v1/.well-known/jwks.json",
		Algorithms:   DefaultAlgorithms(),
		CacheTTL:     DefaultCacheTTL,
		FetchTimeout: DefaultFetchTimeout,
	}
}

// DefaultAlgorithms returns a fresh copy of the allow-list.
func DefaultAlgorithms() []string {
	return []string{AlgES256, AlgRS256, AlgEdDSA}
}

// Defaulted fills zero values without touching explicit settings.
func (c AcceptConfig) Defaulted() AcceptConfig {
	if c.AuthorityURL != "" {
		d := SupabaseAccept(c.AuthorityURL)
		if c.Issuer == "" {
			c.Issuer = d.Issuer
		}
		if c.JWKSURL == "" {
			c.JWKSURL = d.JWKSURL
		}
	}
	if c.Audience == "" {
		c.Audience = DefaultAudience
	}
	if len(c.Algorithms) == 0 {
		c.Algorithms = DefaultAlgorithms()
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	return c
}

// Validate rejects configurations that would weaken verification.
func (c AcceptConfig) Validate() error {
	if strings.TrimSpace(c.Issuer) == "" {
		return errors.New("supaguard: issuer is empty")
	}
	if strings.TrimSpace(c.JWKSURL) == "" {
		return errors.New("supaguard: jwks url is empty")
	}
	if strings.TrimSpace(c.Audience) == "" {
		return errors.New("supaguard: audience is empty")
	}
	if c.Skew < 0 || c.Skew > 5*time.Minute {
		return errors.New("supaguard: invalid clock skew")
	}
	for _, alg := range c.Algorithms {
		switch alg {
		case AlgRS256, AlgES256, AlgEdDSA:
		default:
			return errors.New("supaguard: algorithm not allowed: " + alg)
		}
	}
	return nil
}
