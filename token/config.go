package token

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Algorithm defines supported token signing algorithms. "none" is never
// accepted; decoding rejects any token whose header algorithm differs from
// the configured one.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
	ES256 Algorithm = "ES256"
	ES384 Algorithm = "ES384"
	ES512 Algorithm = "ES512"
)

const defaultLeeway = 5 * time.Second

// Config configures the token codec. Key material is read once at
// construction and shared read-only across concurrent operations.
type Config struct {
	// Algorithm is the signing algorithm (default: HS256).
	Algorithm Algorithm `mapstructure:"algorithm"`

	// Secret is the HMAC signing key (required for HS* algorithms).
	Secret string `mapstructure:"secret"`

	// PrivateKey is the RSA or ECDSA private key (required for RS*/ES*).
	PrivateKey any `mapstructure:"-"`

	// PublicKey is the verification key. If unset it is derived from
	// PrivateKey.
	PublicKey any `mapstructure:"-"`

	// Issuer is the "iss" claim stamped on issued tokens and required on
	// decoded ones when set.
	Issuer string `mapstructure:"issuer"`

	// Leeway absorbs clock drift between issuer and verifier when checking
	// exp and nbf (default: 5s).
	Leeway time.Duration `mapstructure:"leeway"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = HS256
	}
	if c.Leeway == 0 {
		c.Leeway = defaultLeeway
	}
}

// Validate checks required key material for the configured algorithm.
func (c *Config) Validate() error {
	switch c.Algorithm {
	case HS256, HS384, HS512:
		if c.Secret == "" {
			return errors.New("secret is required for HMAC algorithms")
		}
		if len(c.Secret) < 32 {
			return errors.New("secret must be at least 32 bytes")
		}
	case RS256, RS384, RS512:
		if c.PrivateKey == nil && c.PublicKey == nil {
			return errors.New("key material is required for RSA algorithms")
		}
		if c.PrivateKey != nil {
			if _, ok := c.PrivateKey.(*rsa.PrivateKey); !ok {
				return errors.New("private key must be *rsa.PrivateKey for RSA algorithms")
			}
		}
	case ES256, ES384, ES512:
		if c.PrivateKey == nil && c.PublicKey == nil {
			return errors.New("key material is required for ECDSA algorithms")
		}
		if c.PrivateKey != nil {
			if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); !ok {
				return errors.New("private key must be *ecdsa.PrivateKey for ECDSA algorithms")
			}
		}
	default:
		return errors.New("unsupported algorithm: " + string(c.Algorithm))
	}
	if c.Leeway < 0 || c.Leeway > time.Minute {
		return errors.New("leeway must be between 0 and 1m")
	}
	return nil
}

// signingMethod returns the golang-jwt method for the configured algorithm.
func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Algorithm {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	case RS256:
		return gojwt.SigningMethodRS256
	case RS384:
		return gojwt.SigningMethodRS384
	case RS512:
		return gojwt.SigningMethodRS512
	case ES256:
		return gojwt.SigningMethodES256
	case ES384:
		return gojwt.SigningMethodES384
	case ES512:
		return gojwt.SigningMethodES512
	default:
		return gojwt.SigningMethodHS256
	}
}

// signKey returns the key used for signing tokens.
func (c *Config) signKey() any {
	switch c.Algorithm {
	case HS256, HS384, HS512:
		return []byte(c.Secret)
	default:
		return c.PrivateKey
	}
}

// verifyKey returns the key used for verifying signatures.
func (c *Config) verifyKey() any {
	switch c.Algorithm {
	case HS256, HS384, HS512:
		return []byte(c.Secret)
	default:
		if c.PublicKey != nil {
			return c.PublicKey
		}
		switch pk := c.PrivateKey.(type) {
		case *rsa.PrivateKey:
			return &pk.PublicKey
		case *ecdsa.PrivateKey:
			return &pk.PublicKey
		}
		return c.PrivateKey
	}
}
