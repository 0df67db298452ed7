package supabasekit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/supaguard/core"
	jwtkit "github.com/PaulFidika/supaguard/jwt"
	"github.com/PaulFidika/supaguard/jwks"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// KeyResolver is satisfied by *jwks.Resolver.
type KeyResolver interface {
	Resolve(ctx context.Context, kid, algHint string) (jwtkit.PublicKey, error)
}

// Verifier is the trust boundary for end-user tokens: it returns claims only when the
// signature, the required claims, the audience, the expiry and the issuer all check out.
type Verifier struct {
	issuer     string
	audience   string
	algorithms []string
	skew       time.Duration
	keys       KeyResolver
	now        func() time.Time
	log        logrus.FieldLogger
	observer   core.Observer
}

// VerifierOpt configures a Verifier.
type VerifierOpt func(*Verifier)

func WithClock(now func() time.Time) VerifierOpt { return func(v *Verifier) { v.now = now } }

func WithLogger(l logrus.FieldLogger) VerifierOpt { return func(v *Verifier) { v.log = l } }

func WithObserver(o core.Observer) VerifierOpt { return func(v *Verifier) { v.observer = o } }

// NewVerifier builds a verifier for cfg that obtains keys from keys.
func NewVerifier(cfg core.AcceptConfig, keys KeyResolver, opts ...VerifierOpt) (*Verifier, error) {
	cfg = cfg.Defaulted()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, errors.New("supaguard: missing key resolver")
	}
	v := &Verifier{
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		algorithms: append([]string(nil), cfg.Algorithms...),
		skew:       cfg.Skew,
		keys:       keys,
		now:        time.Now,
		log:        logrus.StandardLogger(),
		observer:   core.NopObserver{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// New wires a resolver with its own cache and a verifier for cfg. Resolver options are
// applied after the ones derived from cfg.
func New(cfg core.AcceptConfig, ropts []jwks.Option, vopts ...VerifierOpt) (*Verifier, *jwks.Resolver, error) {
	cfg = cfg.Defaulted()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	base := []jwks.Option{
		jwks.WithStaleAfter(cfg.CacheTTL),
		jwks.WithFetchTimeout(cfg.FetchTimeout),
	}
	resolver := jwks.NewResolver(cfg.JWKSURL, jwks.NewCache(), append(base, ropts...)...)
	v, err := NewVerifier(cfg, resolver, vopts...)
	if err != nil {
		return nil, nil, err
	}
	return v, resolver, nil
}

func (v *Verifier) Issuer() string   { return v.issuer }
func (v *Verifier) Audience() string { return v.audience }

// Verify checks rawToken and returns its claims. Every failure wraps one of the core
// sentinel errors and is terminal.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (ClaimSet, error) {
	start := time.Now()
	claims, err := v.verify(ctx, strings.TrimSpace(rawToken))
	kind := core.KindOf(err)
	v.observer.TokenVerified(kind, time.Since(start))
	if err != nil {
		v.log.WithField("kind", kind).WithError(err).Debug("supaguard: token rejected")
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) verify(ctx context.Context, rawToken string) (ClaimSet, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("%w: empty token", core.ErrMalformedToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.algorithms),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(v.audience),
		// Defense in depth; the explicit comparison in checkClaims is authoritative.
		jwt.WithIssuer(v.issuer),
		jwt.WithLeeway(v.skew),
		jwt.WithTimeFunc(v.now),
	)

	// The header is untrusted: kid and alg only select a key.
	var keyErr error
	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok {
			keyErr = fmt.Errorf("%w: header has no kid", core.ErrMalformedToken)
			return nil, keyErr
		}
		pk, err := v.keys.Resolve(ctx, kid, t.Method.Alg())
		if err != nil {
			keyErr = err
			return nil, err
		}
		return pk.Key, nil
	})

	switch {
	case keyErr != nil:
		return nil, keyErr
	case err == nil:
		if err := v.checkClaims(claims, nil); err != nil {
			return nil, err
		}
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		// The signature verified; decide which claim check failed first.
		return nil, v.checkClaims(claims, err)
	case errors.Is(err, jwt.ErrTokenMalformed), !hasAlg(tok):
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	default:
		// Disallowed or unknown alg, key/alg mismatch, bad signature.
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	return ClaimSet(claims), nil
}

// checkClaims runs the post-signature checks in a fixed order: presence, audience,
// time window, issuer. validationErr is the library's verdict from the same pass.
func (v *Verifier) checkClaims(claims jwt.MapClaims, validationErr error) error {
	if missing := missingClaims(claims); len(missing) > 0 {
		return fmt.Errorf("%w: %s", core.ErrMissingClaims, strings.Join(missing, ", "))
	}
	if !hasAudience(claims, v.audience) {
		return fmt.Errorf("%w: want %q", core.ErrInvalidAudience, v.audience)
	}
	switch {
	case errors.Is(validationErr, jwt.ErrTokenExpired):
		return fmt.Errorf("%w", core.ErrTokenExpired)
	case errors.Is(validationErr, jwt.ErrTokenNotValidYet), errors.Is(validationErr, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w", core.ErrTokenNotYetValid)
	}
	if iss, _ := claims.GetIssuer(); iss != v.issuer {
		return fmt.Errorf("%w: want %q", core.ErrInvalidIssuer, v.issuer)
	}
	if validationErr != nil {
		// Remaining library failures are type errors on optional time claims.
		return fmt.Errorf("%w: %v", core.ErrMalformedToken, validationErr)
	}
	return nil
}

// hasAlg reports whether the header names an algorithm at all. A header without one is
// malformed rather than merely using a disallowed algorithm.
func hasAlg(tok *jwt.Token) bool {
	if tok == nil {
		return false
	}
	_, ok := tok.Header["alg"].(string)
	return ok
}

func missingClaims(claims jwt.MapClaims) []string {
	var missing []string
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		missing = append(missing, "exp")
	}
	if iss, err := claims.GetIssuer(); err != nil || iss == "" {
		missing = append(missing, "iss")
	}
	if sub, err := claims.GetSubject(); err != nil || sub == "" {
		missing = append(missing, "sub")
	}
	return missing
}

func hasAudience(claims jwt.MapClaims, want string) bool {
	aud, err := claims.GetAudience()
	if err != nil {
		return false
	}
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
