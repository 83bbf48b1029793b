package token

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Type distinguishes access tokens from refresh tokens. A token presented
// to the wrong operation is rejected regardless of signature validity.
type Type string

const (
	// TypeAccess marks short-lived bearer tokens.
	TypeAccess Type = "access"
	// TypeRefresh marks long-lived rotation tokens.
	TypeRefresh Type = "refresh"
)

// Registered claim keys used on the wire.
const (
	claimSubject   = "sub"
	claimIssuer    = "iss"
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
	claimNotBefore = "nbf"
	claimTokenID   = "jti"
	claimTokenType = "token_type"
	claimChainID   = "chain_id"
	claimScope     = "scope"
)

// Claims carries the fixed token fields plus an open extension map.
// Extension values round-trip unchanged modulo JSON typing (numbers decode
// as float64).
type Claims struct {
	// Subject is the stable identity id the token was issued for.
	Subject string

	// TokenType is "access" or "refresh".
	TokenType Type

	// ID is the unique token identifier (jti).
	ID string

	// ChainID is the rotation-chain identifier. Carried by refresh tokens
	// and, for chain-wide logout, by access tokens of the same issuance.
	ChainID string

	// Scope is the optional space-separated scope string.
	Scope string

	// Issuer mirrors the codec's configured issuer.
	Issuer string

	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore time.Time

	// Extra holds extension attributes outside the fixed fields. Keys
	// colliding with registered claim names are ignored on encode.
	Extra map[string]any
}

// toMap flattens the claims into a jwt.MapClaims for signing. Fixed fields
// win over colliding extension keys.
func (c *Claims) toMap() gojwt.MapClaims {
	m := gojwt.MapClaims{}
	for k, v := range c.Extra {
		m[k] = v
	}
	m[claimSubject] = c.Subject
	m[claimTokenType] = string(c.TokenType)
	if c.ID != "" {
		m[claimTokenID] = c.ID
	}
	if c.ChainID != "" {
		m[claimChainID] = c.ChainID
	}
	if c.Scope != "" {
		m[claimScope] = c.Scope
	}
	if c.Issuer != "" {
		m[claimIssuer] = c.Issuer
	}
	if !c.IssuedAt.IsZero() {
		m[claimIssuedAt] = gojwt.NewNumericDate(c.IssuedAt)
	}
	if !c.ExpiresAt.IsZero() {
		m[claimExpiresAt] = gojwt.NewNumericDate(c.ExpiresAt)
	}
	if !c.NotBefore.IsZero() {
		m[claimNotBefore] = gojwt.NewNumericDate(c.NotBefore)
	}
	return m
}

// claimsFromMap lifts decoded map claims back into the fixed-field form,
// moving everything unrecognized into Extra.
func claimsFromMap(m gojwt.MapClaims) *Claims {
	c := &Claims{}
	c.Subject, _ = m[claimSubject].(string)
	if tt, ok := m[claimTokenType].(string); ok {
		c.TokenType = Type(tt)
	}
	c.ID, _ = m[claimTokenID].(string)
	c.ChainID, _ = m[claimChainID].(string)
	c.Scope, _ = m[claimScope].(string)
	c.Issuer, _ = m[claimIssuer].(string)
	if t, err := m.GetIssuedAt(); err == nil && t != nil {
		c.IssuedAt = t.Time
	}
	if t, err := m.GetExpirationTime(); err == nil && t != nil {
		c.ExpiresAt = t.Time
	}
	if t, err := m.GetNotBefore(); err == nil && t != nil {
		c.NotBefore = t.Time
	}

	for k, v := range m {
		switch k {
		case claimSubject, claimIssuer, claimIssuedAt, claimExpiresAt,
			claimNotBefore, claimTokenID, claimTokenType, claimChainID, claimScope:
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any)
			}
			c.Extra[k] = v
		}
	}
	return c
}
