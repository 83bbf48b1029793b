package authcore

import (
	"fmt"
	"sort"

	"github.com/skillsenselab/authcore/oauth"
	"github.com/skillsenselab/authcore/password"
	"github.com/skillsenselab/authcore/session"
	"github.com/skillsenselab/authcore/token"
)

// Config composes the subpackage configurations for loading from YAML/env
// via mapstructure. Sub-configs are pointers so unused features stay nil
// and don't force validation or defaults.
type Config struct {
	// Password configures credential hashing (nil uses defaults).
	Password *password.Config `mapstructure:"password"`

	// Token configures the signing codec (required).
	Token *token.Config `mapstructure:"token"`

	// Session configures token pair lifetimes (nil uses defaults).
	Session *session.Config `mapstructure:"session"`

	// Providers configures federated login, keyed by provider name
	// (nil disables federation).
	Providers map[string]*oauth.Config `mapstructure:"providers"`
}

// ApplyDefaults sets sensible defaults for non-nil sub-configurations.
func (c *Config) ApplyDefaults() {
	if c.Token != nil {
		c.Token.ApplyDefaults()
	}
	if c.Password != nil {
		c.Password.ApplyDefaults()
	}
	if c.Session != nil {
		c.Session.ApplyDefaults()
	}
	for name, provider := range c.Providers {
		if provider.Provider == "" {
			provider.Provider = name
		}
		provider.ApplyDefaults()
	}
}

// Validate checks all non-nil sub-configurations.
func (c *Config) Validate() error {
	if c.Token == nil {
		return fmt.Errorf("token configuration is required")
	}
	if err := c.Token.Validate(); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if c.Password != nil {
		if err := c.Password.Validate(); err != nil {
			return fmt.Errorf("password: %w", err)
		}
	}
	if c.Session != nil {
		if err := c.Session.Validate(); err != nil {
			return fmt.Errorf("session: %w", err)
		}
	}
	for name, provider := range c.Providers {
		if err := provider.Validate(); err != nil {
			return fmt.Errorf("providers.%s: %w", name, err)
		}
	}
	return nil
}

// Describe returns a human-readable one-liner for startup summaries.
// Example: "token(HS256) access=15m0s refresh=168h0m0s providers=[github google]"
func (c *Config) Describe() string {
	line := ""
	if c.Token != nil {
		alg := c.Token.Algorithm
		if alg == "" {
			alg = token.HS256
		}
		line = fmt.Sprintf("token(%s)", alg)
	}
	if c.Session != nil {
		line += fmt.Sprintf(" access=%s refresh=%s", c.Session.AccessTokenTTL, c.Session.RefreshTokenTTL)
	}
	if len(c.Providers) > 0 {
		names := make([]string, 0, len(c.Providers))
		for name := range c.Providers {
			names = append(names, name)
		}
		sort.Strings(names)
		line += fmt.Sprintf(" providers=%v", names)
	}
	if line == "" {
		return "unconfigured"
	}
	return line
}
