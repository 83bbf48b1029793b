package oauth

import "testing"

func TestNormalizeRemoteIdentity_Google(t *testing.T) {
	remote, err := normalizeRemoteIdentity(ProviderGoogle, map[string]any{
		"sub":            "g-123",
		"email":          "alice@example.com",
		"email_verified": true,
		"name":           "Alice",
		"picture":        "https://lh3.example/p.jpg",
		"locale":         "en-US",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if remote.Subject != "g-123" || remote.Email != "alice@example.com" || !remote.EmailVerified {
		t.Errorf("unexpected identity: %+v", remote)
	}
	if remote.Name != "Alice" || remote.Locale != "en-US" {
		t.Errorf("profile fields not mapped: %+v", remote)
	}
}

func TestNormalizeRemoteIdentity_GitHubNumericID(t *testing.T) {
	// JSON numbers decode as float64.
	remote, err := normalizeRemoteIdentity(ProviderGitHub, map[string]any{
		"id":         float64(583231),
		"login":      "octocat",
		"avatar_url": "https://avatars.example/583231",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if remote.Subject != "583231" {
		t.Errorf("numeric id should render as string, got %q", remote.Subject)
	}
	if remote.Name != "octocat" {
		t.Errorf("login should back the name when name is absent, got %q", remote.Name)
	}
}

func TestNormalizeRemoteIdentity_DiscordAvatarURL(t *testing.T) {
	remote, err := normalizeRemoteIdentity(ProviderDiscord, map[string]any{
		"id":       "80351110224678912",
		"username": "nelly",
		"avatar":   "8342729096ea3675442027381ff50dfe",
		"verified": true,
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := "https://cdn.discordapp.com/avatars/80351110224678912/8342729096ea3675442027381ff50dfe.png"
	if remote.AvatarURL != want {
		t.Errorf("avatar hash should expand to a CDN URL, got %q", remote.AvatarURL)
	}
	if !remote.EmailVerified {
		t.Error("verified flag should map to EmailVerified")
	}
}

func TestNormalizeRemoteIdentity_MicrosoftEmailFallback(t *testing.T) {
	remote, err := normalizeRemoteIdentity(ProviderMicrosoft, map[string]any{
		"id":                "ms-9",
		"displayName":       "Bob",
		"userPrincipalName": "bob@contoso.com",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if remote.Email != "bob@contoso.com" {
		t.Errorf("userPrincipalName should back a missing mail field, got %q", remote.Email)
	}
}

func TestNormalizeRemoteIdentity_MissingSubject(t *testing.T) {
	_, err := normalizeRemoteIdentity(ProviderGoogle, map[string]any{"email": "x@example.com"})
	if err == nil {
		t.Fatal("a payload with no subject id must be rejected")
	}
}

func TestRemoteIdentity_DisplayName(t *testing.T) {
	cases := []struct {
		remote RemoteIdentity
		want   string
	}{
		{RemoteIdentity{Name: "Alice", Email: "a@x.com", Subject: "s"}, "Alice"},
		{RemoteIdentity{Email: "a@x.com", Subject: "s"}, "a@x.com"},
		{RemoteIdentity{Subject: "s"}, "s"},
	}
	for _, tc := range cases {
		if got := tc.remote.DisplayName(); got != tc.want {
			t.Errorf("DisplayName() = %q, want %q", got, tc.want)
		}
	}
}
