package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	autherr "github.com/skillsenselab/authcore/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec(&Config{Secret: testSecret, Issuer: "authcore-test"}, opts...)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func baseClaims(now time.Time) *Claims {
	return &Claims{
		Subject:   "user-1",
		TokenType: TypeAccess,
		ID:        "jti-1",
		ChainID:   "chain-1",
		Scope:     "read write",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
}

func TestNewCodec_RejectsMissingSecret(t *testing.T) {
	_, err := NewCodec(&Config{})
	if autherr.CodeOf(err) != autherr.ErrCodeInvalidConfig {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestNewCodec_RejectsShortSecret(t *testing.T) {
	_, err := NewCodec(&Config{Secret: "short"})
	if err == nil {
		t.Error("expected error for short HMAC secret")
	}
}

func TestCodec_Encode_Decode_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, WithClock(fixedClock(now)))

	claims := baseClaims(now)
	claims.Extra = map[string]any{"tenant": "acme", "tier": "pro"}

	tokenString, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Count(tokenString, ".") != 2 {
		t.Fatalf("expected compact three-part token, got %q", tokenString)
	}

	decoded, err := c.Decode(tokenString)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Subject != "user-1" || decoded.TokenType != TypeAccess {
		t.Errorf("fixed fields did not round-trip: %+v", decoded)
	}
	if decoded.ChainID != "chain-1" || decoded.ID != "jti-1" || decoded.Scope != "read write" {
		t.Errorf("fixed fields did not round-trip: %+v", decoded)
	}
	if decoded.Issuer != "authcore-test" {
		t.Errorf("issuer should be stamped from config, got %q", decoded.Issuer)
	}
	if !decoded.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("expiry did not round-trip: %v", decoded.ExpiresAt)
	}
	if decoded.Extra["tenant"] != "acme" || decoded.Extra["tier"] != "pro" {
		t.Errorf("extension attributes did not round-trip: %v", decoded.Extra)
	}
	if _, ok := decoded.Extra["sub"]; ok {
		t.Error("fixed fields must not leak into the extension map")
	}
}

func TestCodec_Encode_RequiresSubjectAndType(t *testing.T) {
	c := newTestCodec(t)
	if _, err := c.Encode(&Claims{TokenType: TypeAccess}); err == nil {
		t.Error("expected error for missing subject")
	}
	if _, err := c.Encode(&Claims{Subject: "u", TokenType: "session"}); err == nil {
		t.Error("expected error for unknown token type")
	}
}

func TestCodec_Decode_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, WithClock(fixedClock(now)))

	tokenString, err := c.Encode(baseClaims(now))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Fast-forward past the 5-minute lifetime.
	late, err := NewCodec(&Config{Secret: testSecret, Issuer: "authcore-test"},
		WithClock(fixedClock(now.Add(6*time.Minute))))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	_, err = late.Decode(tokenString)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestCodec_Decode_LeewayAbsorbsDrift(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, WithClock(fixedClock(now)))
	tokenString, err := c.Encode(baseClaims(now))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// 2s past expiry is inside the default 5s leeway.
	drifted, _ := NewCodec(&Config{Secret: testSecret, Issuer: "authcore-test"},
		WithClock(fixedClock(now.Add(5*time.Minute+2*time.Second))))
	if _, err := drifted.Decode(tokenString); err != nil {
		t.Errorf("expiry within leeway should pass, got %v", err)
	}
}

func TestCodec_Decode_NotYetValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, WithClock(fixedClock(now)))

	claims := baseClaims(now)
	claims.NotBefore = now.Add(time.Hour)
	tokenString, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = c.Decode(tokenString)
	if !errors.Is(err, ErrNotYetValid) {
		t.Errorf("expected ErrNotYetValid, got %v", err)
	}
}

func TestCodec_Decode_WrongKey(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, WithClock(fixedClock(now)))
	tokenString, err := c.Encode(baseClaims(now))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	other, _ := NewCodec(&Config{Secret: "ffffffffffffffffffffffffffffffff", Issuer: "authcore-test"},
		WithClock(fixedClock(now)))
	_, err = other.Decode(tokenString)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestCodec_Decode_AlgorithmConfusion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hs384, err := NewCodec(&Config{Secret: testSecret, Algorithm: HS384, Issuer: "authcore-test"},
		WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	tokenString, err := hs384.Encode(baseClaims(now))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	c := newTestCodec(t, WithClock(fixedClock(now)))
	_, err = c.Decode(tokenString)
	if !errors.Is(err, ErrUnsupportedAlg) {
		t.Errorf("expected ErrUnsupportedAlg for HS384 token on HS256 codec, got %v", err)
	}
}

func TestCodec_Decode_NoneAlgorithm(t *testing.T) {
	c := newTestCodec(t)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"user-1","exp":99999999999}`))
	unsigned := header + "." + payload + "."

	_, err := c.Decode(unsigned)
	if err == nil {
		t.Fatal("unsigned token must be rejected")
	}
	if !errors.Is(err, ErrUnsupportedAlg) && !errors.Is(err, ErrMalformed) {
		t.Errorf("expected algorithm or malformed rejection, got %v", err)
	}
}

func TestCodec_Decode_Malformed(t *testing.T) {
	c := newTestCodec(t)
	for _, bad := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := c.Decode(bad)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q): expected ErrMalformed, got %v", bad, err)
		}
	}
}

func TestCodec_Decode_MissingExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, WithClock(fixedClock(now)))

	claims := baseClaims(now)
	claims.ExpiresAt = time.Time{}
	tokenString, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(tokenString); err == nil {
		t.Error("token without exp must be rejected")
	}
}
