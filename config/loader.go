// Package config loads library configuration from YAML files and the
// environment. Values layer in order: config file, then .env file, then
// process environment, with later layers winning.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts file operations so loading is testable without
// touching the real working directory.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

type loaderOptions struct {
	fs         FileSystem
	configFile string
	envFile    string
	envPrefix  string
}

// Option configures Load.
type Option func(*loaderOptions)

// WithFileSystem sets a custom filesystem.
func WithFileSystem(fs FileSystem) Option {
	return func(o *loaderOptions) { o.fs = fs }
}

// WithConfigFile sets an explicit config file path, skipping the search.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile sets an explicit .env file path, skipping the search.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvPrefix restricts environment binding to variables carrying the
// given prefix (e.g. "AUTHCORE" binds AUTHCORE_TOKEN_SECRET to
// token.secret).
func WithEnvPrefix(prefix string) Option {
	return func(o *loaderOptions) { o.envPrefix = prefix }
}

var configSearchPaths = []string{
	"./config.yml",
	"./config/config.yml",
}

var envSearchPaths = []string{
	"./.env",
	"./config/.env",
}

// Load populates cfg (a pointer to a mapstructure-tagged struct) from the
// resolved config file, .env file, and environment.
func Load(cfg any, opts ...Option) error {
	var o loaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.fs == nil {
		o.fs = osFileSystem{}
	}
	if o.configFile == "" {
		o.configFile = firstExisting(o.fs, configSearchPaths)
	}
	if o.envFile == "" {
		o.envFile = firstExisting(o.fs, envSearchPaths)
	}

	v := viper.New()

	if o.configFile != "" && o.fs.Exists(o.configFile) {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", o.configFile, err)
		}
	}

	if o.envFile != "" && o.fs.Exists(o.envFile) {
		if err := o.fs.LoadEnv(o.envFile); err != nil {
			return fmt.Errorf("config: load %s: %w", o.envFile, err)
		}
	}

	bindEnv(v, o.envPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	return nil
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, path := range paths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// bindEnv maps environment variables onto nested viper keys. Each
// underscore boundary may be a nesting point, so TOKEN_SECRET binds both
// token_secret and token.secret.
func bindEnv(v *viper.Viper, prefix string) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key, value := pair[0], pair[1]
		if prefix != "" {
			if !strings.HasPrefix(key, prefix+"_") {
				continue
			}
			key = strings.TrimPrefix(key, prefix+"_")
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants generates the nested key spellings an environment
// variable may address. PASSWORD_SALT_LENGTH yields password_salt_length,
// password.salt.length, password.salt_length, and password_salt.length.
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	variants := []string{lower, strings.ReplaceAll(lower, "_", ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, variant := range variants {
		if !seen[variant] {
			seen[variant] = true
			out = append(out, variant)
		}
	}
	return out
}
