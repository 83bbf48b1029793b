package session

import (
	"fmt"
	"time"
)

// Config configures token pair lifetimes.
type Config struct {
	// AccessTokenTTL is the access token lifetime (default: 15m).
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token lifetime (default: 168h = 7d).
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 7 * 24 * time.Hour
	}
}

// Validate checks lifetime sanity: access tokens are short-lived, refresh
// tokens strictly longer.
func (c *Config) Validate() error {
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("access_token_ttl must be positive (got: %s)", c.AccessTokenTTL)
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("refresh_token_ttl must be positive (got: %s)", c.RefreshTokenTTL)
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("refresh_token_ttl (%s) must exceed access_token_ttl (%s)",
			c.RefreshTokenTTL, c.AccessTokenTTL)
	}
	return nil
}
