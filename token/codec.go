// Package token encodes, decodes, and cryptographically verifies compact
// claims-bearing tokens (JWS). The codec is storage-free: revocation state
// is layered above it by the session manager.
//
// Decoding enforces an algorithm allow-list of exactly the configured
// algorithm — a token signed with "none" or any other algorithm is rejected
// before signature verification. Expiry and not-before checks apply a small
// configurable leeway to absorb clock drift between issuer and verifier.
package token

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	autherr "github.com/skillsenselab/authcore/errors"
)

// Sentinel errors for errors.Is comparisons. Decode returns fresh values
// carrying the same codes.
var (
	ErrMalformed        = autherr.Token(autherr.ErrCodeTokenMalformed, "Token is malformed.")
	ErrSignatureInvalid = autherr.Token(autherr.ErrCodeTokenSignature, "Token signature is invalid.")
	ErrExpired          = autherr.Token(autherr.ErrCodeTokenExpired, "Token has expired.")
	ErrNotYetValid      = autherr.Token(autherr.ErrCodeTokenNotYetValid, "Token is not yet valid.")
	ErrUnsupportedAlg   = autherr.Token(autherr.ErrCodeTokenUnsupportedAlg, "Token algorithm is not allowed.")
)

var errUnexpectedAlg = errors.New("token: unexpected signing algorithm")

// Codec signs and verifies claims-bearing tokens.
type Codec struct {
	cfg Config
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for expiry checks. Intended for
// tests with a simulated clock.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a token codec. Missing or invalid key material is a
// configuration error.
func NewCodec(cfg *Config, opts ...Option) (*Codec, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, autherr.InvalidConfig("token", err.Error()).WithCause(err)
	}
	codec := &Codec{cfg: c, now: time.Now}
	for _, opt := range opts {
		opt(codec)
	}
	return codec, nil
}

// Encode serializes and signs the claims, returning the compact token
// string. The configured issuer is stamped when the claims carry none.
func (c *Codec) Encode(claims *Claims) (string, error) {
	if claims == nil || claims.Subject == "" {
		return "", fmt.Errorf("token: encode: claims must carry a subject")
	}
	if claims.TokenType != TypeAccess && claims.TokenType != TypeRefresh {
		return "", fmt.Errorf("token: encode: unknown token type %q", claims.TokenType)
	}
	if claims.Issuer == "" {
		claims.Issuer = c.cfg.Issuer
	}

	t := gojwt.NewWithClaims(c.cfg.signingMethod(), claims.toMap())
	signed, err := t.SignedString(c.cfg.signKey())
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode parses the token, verifies its signature against the configured
// key, and checks expiry and not-before with the configured leeway. It does
// not consult revocation state.
//
// Failures map to distinct errors: ErrMalformed, ErrSignatureInvalid,
// ErrExpired, ErrNotYetValid, ErrUnsupportedAlg.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithLeeway(c.cfg.Leeway),
		gojwt.WithTimeFunc(c.now),
		gojwt.WithExpirationRequired(),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(c.cfg.Issuer))
	}

	parsed, err := gojwt.ParseWithClaims(tokenString, gojwt.MapClaims{}, c.keyFunc, opts...)
	if err != nil {
		return nil, mapDecodeError(err)
	}
	if !parsed.Valid {
		return nil, autherr.Token(autherr.ErrCodeTokenMalformed, "Token is invalid.")
	}
	m, ok := parsed.Claims.(gojwt.MapClaims)
	if !ok {
		return nil, autherr.Token(autherr.ErrCodeTokenMalformed, "Token claims have an unexpected shape.")
	}
	return claimsFromMap(m), nil
}

// keyFunc enforces that the token's header algorithm matches the configured
// one before any verification key is handed out.
func (c *Codec) keyFunc(t *gojwt.Token) (any, error) {
	if t.Method.Alg() != c.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("%w: %s", errUnexpectedAlg, t.Method.Alg())
	}
	return c.cfg.verifyKey(), nil
}

// mapDecodeError translates golang-jwt failures into the error taxonomy.
// Order matters: expiry and not-before are checked after signature
// verification by the parser, so an expired token with a bad signature
// still surfaces as a signature failure.
func mapDecodeError(err error) error {
	switch {
	case errors.Is(err, errUnexpectedAlg):
		return autherr.Token(autherr.ErrCodeTokenUnsupportedAlg, "Token algorithm is not allowed.").WithCause(err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return autherr.Token(autherr.ErrCodeTokenSignature, "Token signature is invalid.").WithCause(err)
	case errors.Is(err, gojwt.ErrTokenExpired):
		return autherr.Token(autherr.ErrCodeTokenExpired, "Token has expired.").WithCause(err)
	case errors.Is(err, gojwt.ErrTokenNotValidYet):
		return autherr.Token(autherr.ErrCodeTokenNotYetValid, "Token is not yet valid.").WithCause(err)
	default:
		return autherr.Token(autherr.ErrCodeTokenMalformed, "Token is malformed.").WithCause(err)
	}
}
