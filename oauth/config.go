package oauth

import (
	"fmt"
	"time"
)

// Well-known provider names. A Config may also name a custom provider, in
// which case every endpoint must be supplied explicitly.
const (
	ProviderGoogle    = "google"
	ProviderGitHub    = "github"
	ProviderDiscord   = "discord"
	ProviderMicrosoft = "microsoft"
)

// ConflictPolicy decides what happens when a federated login resolves to an
// identity that already holds a link for the same provider.
type ConflictPolicy string

const (
	// ConflictReject fails the login with an IDENTITY_CONFLICT error.
	ConflictReject ConflictPolicy = "reject"

	// ConflictRelink replaces the identity's existing link for the
	// provider with the newly asserted one.
	ConflictRelink ConflictPolicy = "relink"
)

type endpoints struct {
	authURL     string
	tokenURL    string
	userInfoURL string
	scopes      []string
}

var knownProviders = map[string]endpoints{
	ProviderGoogle: {
		authURL:     "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL:    "https://oauth2.googleapis.com/token",
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		scopes:      []string{"openid", "email", "profile"},
	},
	ProviderGitHub: {
		authURL:     "https://github.com/login/oauth/authorize",
		tokenURL:    "https://github.com/login/oauth/access_token",
		userInfoURL: "https://api.github.com/user",
		scopes:      []string{"read:user", "user:email"},
	},
	ProviderDiscord: {
		authURL:     "https://discord.com/oauth2/authorize",
		tokenURL:    "https://discord.com/api/oauth2/token",
		userInfoURL: "https://discord.com/api/users/@me",
		scopes:      []string{"identify", "email"},
	},
	ProviderMicrosoft: {
		authURL:     "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		tokenURL:    "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		userInfoURL: "https://graph.microsoft.com/v1.0/me",
		scopes:      []string{"openid", "email", "profile", "User.Read"},
	},
}

// Config configures a single provider's authorization-code flow.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Provider is the provider name. For well-known providers (google,
	// github, discord, microsoft) the endpoints and default scopes are
	// filled in by ApplyDefaults.
	Provider string `mapstructure:"provider"`

	// ClientID is the OAuth2 client ID issued by the provider.
	ClientID string `mapstructure:"client_id"`

	// ClientSecret is the OAuth2 client secret.
	ClientSecret string `mapstructure:"client_secret"`

	// RedirectURI is the callback URL registered with the provider.
	RedirectURI string `mapstructure:"redirect_uri"`

	// AuthURL is the provider's authorization endpoint.
	AuthURL string `mapstructure:"auth_url"`

	// TokenURL is the provider's token endpoint.
	TokenURL string `mapstructure:"token_url"`

	// UserInfoURL is the provider's identity endpoint.
	UserInfoURL string `mapstructure:"user_info_url"`

	// Scopes are the OAuth2 scopes to request.
	Scopes []string `mapstructure:"scopes"`

	// DisablePKCE turns off the S256 code challenge. Only for providers
	// that reject PKCE parameters.
	DisablePKCE bool `mapstructure:"disable_pkce"`

	// StateTTL bounds the redirect round-trip (default: 10m).
	StateTTL time.Duration `mapstructure:"state_ttl"`

	// HTTPTimeout applies to token exchange and identity fetches
	// (default: 10s).
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// AutoProvision allows creating a new identity on first federated
	// login. When false, unknown subjects are rejected.
	AutoProvision bool `mapstructure:"auto_provision"`

	// LinkByEmail allows a first federated login to attach to an existing
	// identity whose lookup key matches the provider-verified email.
	// Default off: a matching address alone never grants access to an
	// existing account.
	LinkByEmail bool `mapstructure:"link_by_email"`

	// OnConflict selects the ConflictPolicy (default: reject).
	OnConflict ConflictPolicy `mapstructure:"on_conflict"`
}

// ApplyDefaults fills in endpoints and scopes for well-known providers and
// sets flow timing defaults.
func (c *Config) ApplyDefaults() {
	if ep, ok := knownProviders[c.Provider]; ok {
		if c.AuthURL == "" {
			c.AuthURL = ep.authURL
		}
		if c.TokenURL == "" {
			c.TokenURL = ep.tokenURL
		}
		if c.UserInfoURL == "" {
			c.UserInfoURL = ep.userInfoURL
		}
		if len(c.Scopes) == 0 {
			c.Scopes = append([]string(nil), ep.scopes...)
		}
	}
	if c.StateTTL == 0 {
		c.StateTTL = 10 * time.Minute
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.OnConflict == "" {
		c.OnConflict = ConflictReject
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("redirect_uri is required")
	}
	if c.AuthURL == "" || c.TokenURL == "" || c.UserInfoURL == "" {
		return fmt.Errorf("auth_url, token_url, and user_info_url are required for provider %q", c.Provider)
	}
	switch c.OnConflict {
	case ConflictReject, ConflictRelink:
	default:
		return fmt.Errorf("on_conflict must be %q or %q (got: %q)", ConflictReject, ConflictRelink, c.OnConflict)
	}
	return nil
}
