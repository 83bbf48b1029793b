package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type testConfig struct {
	Token struct {
		Secret string `mapstructure:"secret"`
		Issuer string `mapstructure:"issuer"`
	} `mapstructure:"token"`
	Password struct {
		Memory uint32 `mapstructure:"memory"`
	} `mapstructure:"password"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "config.yml", `
token:
  secret: file-secret
  issuer: authcore-test
password:
  memory: 65536
`)

	var cfg testConfig
	if err := Load(&cfg, WithConfigFile(file)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token.Secret != "file-secret" || cfg.Token.Issuer != "authcore-test" {
		t.Errorf("token section not loaded: %+v", cfg.Token)
	}
	if cfg.Password.Memory != 65536 {
		t.Errorf("password.memory = %d, want 65536", cfg.Password.Memory)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "config.yml", "token:\n  secret: file-secret\n")
	t.Setenv("TOKEN_SECRET", "env-secret")

	var cfg testConfig
	if err := Load(&cfg, WithConfigFile(file)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token.Secret != "env-secret" {
		t.Errorf("environment should win over the file, got %q", cfg.Token.Secret)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "TOKEN_ISSUER=dotenv-issuer\n")

	var cfg testConfig
	if err := Load(&cfg, WithEnvFile(envFile)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token.Issuer != "dotenv-issuer" {
		t.Errorf("token.issuer = %q, want dotenv-issuer", cfg.Token.Issuer)
	}
	// godotenv exports into the process; clean up.
	os.Unsetenv("TOKEN_ISSUER")
}

func TestLoad_EnvPrefix(t *testing.T) {
	t.Setenv("AUTHCORE_TOKEN_SECRET", "prefixed")
	t.Setenv("TOKEN_SECRET", "unprefixed")

	var cfg testConfig
	if err := Load(&cfg, WithEnvPrefix("AUTHCORE")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token.Secret != "prefixed" {
		t.Errorf("only prefixed variables should bind, got %q", cfg.Token.Secret)
	}
}

func TestLoad_MissingFilesIsNotAnError(t *testing.T) {
	var cfg testConfig
	if err := Load(&cfg, WithConfigFile(filepath.Join(t.TempDir(), "absent.yml"))); err != nil {
		t.Fatalf("absent files should load an empty config, got %v", err)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("PASSWORD_SALT_LENGTH")
	want := []string{
		"password_salt_length",
		"password.salt.length",
		"password.salt_length",
	}
	// Duplicates collapse, so compare as a set.
	asSet := func(items []string) map[string]bool {
		m := make(map[string]bool)
		for _, item := range items {
			m[item] = true
		}
		return m
	}
	if !reflect.DeepEqual(asSet(got), asSet(want)) {
		t.Errorf("envKeyVariants = %v", got)
	}
}
