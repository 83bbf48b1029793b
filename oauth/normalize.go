package oauth

import (
	"fmt"
	"strconv"
	"strings"
)

// RemoteIdentity is the normalized view of a provider's identity response.
// Field names and shapes differ per provider; normalization maps them onto
// this common form and keeps the raw payload for anything it misses.
type RemoteIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
	Locale        string
	Raw           map[string]any
}

// normalizeRemoteIdentity extracts a stable subject id and profile fields
// from a provider identity payload. Unknown providers fall back to the
// standard OIDC claim names.
func normalizeRemoteIdentity(provider string, raw map[string]any) (*RemoteIdentity, error) {
	ident := &RemoteIdentity{Provider: provider, Raw: raw}

	switch provider {
	case ProviderGoogle:
		ident.Subject = stringField(raw, "sub", "id")
		ident.Email = stringField(raw, "email")
		ident.EmailVerified = boolField(raw, "email_verified", "verified_email")
		ident.Name = stringField(raw, "name")
		ident.AvatarURL = stringField(raw, "picture")
		ident.Locale = stringField(raw, "locale")

	case ProviderGitHub:
		// GitHub ids are numeric; email may be absent unless public.
		ident.Subject = numericField(raw, "id")
		ident.Email = stringField(raw, "email")
		ident.Name = stringField(raw, "name", "login")
		ident.AvatarURL = stringField(raw, "avatar_url")

	case ProviderDiscord:
		ident.Subject = stringField(raw, "id")
		ident.Email = stringField(raw, "email")
		ident.EmailVerified = boolField(raw, "verified")
		ident.Name = stringField(raw, "username")
		ident.Locale = stringField(raw, "locale")
		if hash := stringField(raw, "avatar"); hash != "" && ident.Subject != "" {
			ident.AvatarURL = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", ident.Subject, hash)
		}

	case ProviderMicrosoft:
		ident.Subject = stringField(raw, "id")
		ident.Email = stringField(raw, "mail", "userPrincipalName")
		ident.Name = stringField(raw, "displayName")

	default:
		ident.Subject = stringField(raw, "sub", "id")
		ident.Email = stringField(raw, "email")
		ident.EmailVerified = boolField(raw, "email_verified")
		ident.Name = stringField(raw, "name")
		ident.AvatarURL = stringField(raw, "picture")
	}

	if ident.Subject == "" {
		return nil, fmt.Errorf("identity response from %s has no subject id", provider)
	}
	return ident, nil
}

// DisplayName picks the best human-readable label available.
func (r *RemoteIdentity) DisplayName() string {
	for _, v := range []string{r.Name, r.Email, r.Subject} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return r.Subject
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func boolField(raw map[string]any, keys ...string) bool {
	for _, key := range keys {
		if v, ok := raw[key].(bool); ok {
			return v
		}
	}
	return false
}

// numericField renders a JSON number as its integer string form.
func numericField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case string:
		return v
	}
	return ""
}
