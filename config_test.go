package authcore

import (
	"strings"
	"testing"
	"time"

	"github.com/skillsenselab/authcore/oauth"
	"github.com/skillsenselab/authcore/session"
	"github.com/skillsenselab/authcore/token"
)

func TestConfig_ApplyDefaults_FillsTokenDefaults(t *testing.T) {
	cfg := &Config{Token: &token.Config{Secret: testSecret}}
	cfg.ApplyDefaults()

	if cfg.Token.Algorithm != token.HS256 {
		t.Errorf("token algorithm should default to HS256, got %q", cfg.Token.Algorithm)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("a secret-only token config must validate after defaults: %v", err)
	}
}

func TestConfig_ApplyDefaults_NamesProvidersFromMapKeys(t *testing.T) {
	cfg := &Config{
		Token: &token.Config{Secret: testSecret},
		Providers: map[string]*oauth.Config{
			"github": {ClientID: "cid", RedirectURI: "https://app/callback"},
		},
	}
	cfg.ApplyDefaults()

	p := cfg.Providers["github"]
	if p.Provider != "github" {
		t.Errorf("provider name should come from the map key, got %q", p.Provider)
	}
	if p.TokenURL == "" {
		t.Error("well-known endpoints should be filled in")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate after defaults: %v", err)
	}
}

func TestConfig_Describe(t *testing.T) {
	cfg := &Config{
		Token:   &token.Config{Secret: testSecret},
		Session: &session.Config{AccessTokenTTL: 15 * time.Minute, RefreshTokenTTL: 168 * time.Hour},
		Providers: map[string]*oauth.Config{
			"google": {ClientID: "cid", RedirectURI: "https://app/callback"},
		},
	}
	cfg.ApplyDefaults()

	got := cfg.Describe()
	for _, want := range []string{"token(HS256)", "access=15m0s", "google"} {
		if !strings.Contains(got, want) {
			t.Errorf("Describe() = %q, want it to contain %q", got, want)
		}
	}
}
