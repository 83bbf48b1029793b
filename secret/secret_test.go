package secret

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestSecret_New_CopiesInput(t *testing.T) {
	src := []byte("hunter2hunter2")
	s := New(src)
	src[0] = 'X'
	if !s.EqualBytes([]byte("hunter2hunter2")) {
		t.Error("secret should hold an independent copy of the input")
	}
}

func TestSecret_Equal_Success(t *testing.T) {
	a := FromString("correct horse battery staple")
	b := FromString("correct horse battery staple")
	if !a.Equal(b) {
		t.Error("identical payloads should compare equal")
	}
}

func TestSecret_Equal_Mismatch(t *testing.T) {
	a := FromString("correct horse battery staple")
	b := FromString("correct horse battery stable")
	if a.Equal(b) {
		t.Error("different payloads should not compare equal")
	}
	if a.Equal(FromString("short")) {
		t.Error("different lengths should not compare equal")
	}
}

func TestSecret_Wipe_ZeroesBacking(t *testing.T) {
	s := FromString("sensitive")
	backing := s.Bytes()
	s.Wipe()
	for i, b := range backing {
		if b != 0 {
			t.Fatalf("byte %d not zeroed after Wipe: %v", i, b)
		}
	}
	if !s.IsZero() {
		t.Error("secret should be zero after Wipe")
	}
	// Wiping twice must not panic.
	s.Wipe()
}

func TestSecret_Wipe_NilReceiver(t *testing.T) {
	var s *Secret
	s.Wipe()
	if s.Len() != 0 {
		t.Error("nil secret should have zero length")
	}
}

func TestSecret_Formatting_Redacted(t *testing.T) {
	s := FromString("super-secret-payload")
	for _, rendered := range []string{
		s.String(),
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%+v", s),
		fmt.Sprintf("%#v", s),
		fmt.Sprintf("%s", s),
	} {
		if strings.Contains(rendered, "super-secret-payload") {
			t.Fatalf("payload leaked through formatting: %q", rendered)
		}
		if !strings.Contains(rendered, Redacted) {
			t.Errorf("expected redacted placeholder, got %q", rendered)
		}
	}
}

func TestSecret_MarshalJSON_Redacted(t *testing.T) {
	s := FromString("super-secret-payload")
	out, err := json.Marshal(struct {
		Password *Secret `json:"password"`
	}{Password: s})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "super-secret-payload") {
		t.Fatalf("payload leaked through JSON: %s", out)
	}
	if !strings.Contains(string(out), Redacted) {
		t.Errorf("expected redacted JSON, got %s", out)
	}
}

func TestSecret_Clone_Independent(t *testing.T) {
	a := FromString("payload")
	b := a.Clone()
	a.Wipe()
	if !b.EqualBytes([]byte("payload")) {
		t.Error("clone should survive wiping the original")
	}
}
