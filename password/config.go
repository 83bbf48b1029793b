package password

import "fmt"

// Cost parameter bounds. Instantiation fails outside these: too low is
// brute-forceable, too high is a denial-of-service on the login path.
const (
	minTime    = 1
	maxTime    = 16
	minMemory  = 8 * 1024        // 8 MiB
	maxMemory  = 4 * 1024 * 1024 // 4 GiB
	minThreads = 1
	maxThreads = 64
	minSaltLen = 16
	minKeyLen  = 16
)

// Config configures argon2id password hashing.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Time is the number of argon2id iterations (default: 3).
	Time uint32 `mapstructure:"time"`

	// Memory is the memory usage in KiB (default: 65536 = 64MB).
	Memory uint32 `mapstructure:"memory"`

	// Threads is the parallelism (default: 4).
	Threads uint8 `mapstructure:"threads"`

	// SaltLength is the random salt size in bytes (default: 16, floor: 16).
	SaltLength int `mapstructure:"salt_length"`

	// KeyLength is the digest size in bytes (default: 32).
	KeyLength uint32 `mapstructure:"key_length"`

	// MinPasswordLength is the minimum accepted password length (default: 8).
	MinPasswordLength int `mapstructure:"min_password_length"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
// Defaults follow OWASP recommendations for argon2id.
func (c *Config) ApplyDefaults() {
	if c.Time == 0 {
		c.Time = 3
	}
	if c.Memory == 0 {
		c.Memory = 64 * 1024
	}
	if c.Threads == 0 {
		c.Threads = 4
	}
	if c.SaltLength == 0 {
		c.SaltLength = 16
	}
	if c.KeyLength == 0 {
		c.KeyLength = 32
	}
	if c.MinPasswordLength == 0 {
		c.MinPasswordLength = 8
	}
}

// Validate checks cost parameters against the safe floor and ceiling.
func (c *Config) Validate() error {
	if c.Time < minTime || c.Time > maxTime {
		return fmt.Errorf("time must be between %d and %d (got: %d)", minTime, maxTime, c.Time)
	}
	if c.Memory < minMemory || c.Memory > maxMemory {
		return fmt.Errorf("memory must be between %d and %d KiB (got: %d)", minMemory, maxMemory, c.Memory)
	}
	if c.Threads < minThreads || c.Threads > maxThreads {
		return fmt.Errorf("threads must be between %d and %d (got: %d)", minThreads, maxThreads, c.Threads)
	}
	if c.SaltLength < minSaltLen {
		return fmt.Errorf("salt_length must be >= %d (got: %d)", minSaltLen, c.SaltLength)
	}
	if c.KeyLength < minKeyLen {
		return fmt.Errorf("key_length must be >= %d (got: %d)", minKeyLen, c.KeyLength)
	}
	if c.MinPasswordLength < 1 {
		return fmt.Errorf("min_password_length must be >= 1 (got: %d)", c.MinPasswordLength)
	}
	return nil
}
