package password

import (
	"bytes"
	"strings"
	"testing"

	autherr "github.com/skillsenselab/authcore/errors"
	"github.com/skillsenselab/authcore/secret"
)

// testConfig keeps the hash cheap so the suite stays fast.
func testConfig() *Config {
	return &Config{Time: 1, Memory: 8 * 1024, Threads: 1}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(testConfig())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestNewHasher_RejectsLowMemory(t *testing.T) {
	_, err := NewHasher(&Config{Time: 1, Memory: 1024, Threads: 1})
	if err == nil {
		t.Fatal("expected config error for memory below floor")
	}
	if autherr.CodeOf(err) != autherr.ErrCodeInvalidConfig {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestNewHasher_RejectsShortSalt(t *testing.T) {
	cfg := testConfig()
	cfg.SaltLength = 8
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected config error for salt below 16 bytes")
	}
}

func TestHasher_Hash_Verify_RoundTrip(t *testing.T) {
	h := newTestHasher(t)
	pw := secret.FromString("correct horse battery staple")

	rec, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if len(rec.Salt) != 16 {
		t.Errorf("expected 16-byte salt, got %d", len(rec.Salt))
	}
	if !h.Verify(pw, rec) {
		t.Error("Verify should accept the original password")
	}
	if h.Verify(secret.FromString("correct horse battery stable"), rec) {
		t.Error("Verify should reject a different password")
	}
}

func TestHasher_Hash_FreshSaltPerCall(t *testing.T) {
	h := newTestHasher(t)
	pw := secret.FromString("same password twice")

	a, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if bytes.Equal(a.Salt, b.Salt) {
		t.Error("two hashes of the same password should use different salts")
	}
	if bytes.Equal(a.Digest, b.Digest) {
		t.Error("two hashes of the same password should yield different digests")
	}
}

func TestHasher_Hash_RejectsShortPassword(t *testing.T) {
	h := newTestHasher(t)
	_, err := h.Hash(secret.FromString("short"))
	if autherr.CodeOf(err) != autherr.ErrCodeWeakPassword {
		t.Errorf("expected WEAK_PASSWORD, got %v", err)
	}
}

func TestHasher_Verify_FailsClosed(t *testing.T) {
	h := newTestHasher(t)
	pw := secret.FromString("correct horse battery staple")
	rec, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	cases := map[string]*Record{
		"nil record":        nil,
		"unknown algorithm": {Algorithm: "md5", Time: rec.Time, Memory: rec.Memory, Threads: rec.Threads, Salt: rec.Salt, Digest: rec.Digest},
		"short salt":        {Algorithm: AlgorithmArgon2id, Time: rec.Time, Memory: rec.Memory, Threads: rec.Threads, Salt: rec.Salt[:4], Digest: rec.Digest},
		"short digest":      {Algorithm: AlgorithmArgon2id, Time: rec.Time, Memory: rec.Memory, Threads: rec.Threads, Salt: rec.Salt, Digest: rec.Digest[:8]},
		"zero cost":         {Algorithm: AlgorithmArgon2id, Salt: rec.Salt, Digest: rec.Digest},
	}
	for name, bad := range cases {
		if h.Verify(pw, bad) {
			t.Errorf("%s: malformed record must not verify", name)
		}
	}
	if h.Verify(secret.New(nil), rec) {
		t.Error("empty password must not verify")
	}
}

func TestRecord_Encode_Parse_RoundTrip(t *testing.T) {
	h := newTestHasher(t)
	pw := secret.FromString("correct horse battery staple")
	rec, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	encoded := rec.Encode()
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Errorf("unexpected PHC prefix: %s", encoded)
	}

	parsed, err := ParseRecord(encoded)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if !bytes.Equal(parsed.Salt, rec.Salt) || !bytes.Equal(parsed.Digest, rec.Digest) {
		t.Error("salt/digest should round-trip through encoding")
	}
	if parsed.Time != rec.Time || parsed.Memory != rec.Memory || parsed.Threads != rec.Threads {
		t.Error("cost parameters should round-trip through encoding")
	}
	if !h.VerifyEncoded(pw, encoded) {
		t.Error("VerifyEncoded should accept the original password")
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	for _, bad := range []string{
		"",
		"not a record",
		"$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$ZGlnZXN0",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdA$ZGlnZXN0",
		"$argon2id$v=19$garbage$c2FsdA$ZGlnZXN0",
		"$argon2id$v=19$m=8,t=1,p=1$!!!$ZGlnZXN0",
	} {
		if _, err := ParseRecord(bad); err == nil {
			t.Errorf("expected parse error for %q", bad)
		}
	}
}

func TestRecord_String_OmitsDigest(t *testing.T) {
	h := newTestHasher(t)
	rec, err := h.Hash(secret.FromString("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if strings.Contains(rec.String(), "$") {
		t.Errorf("String should only render parameters, got %s", rec.String())
	}
}
