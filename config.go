package authkit

import (
	"errors"
	"time"
)

// Config carries every tunable of the library. Construct it once (usually via
// [DefaultConfig] plus overrides), hand it to the [Builder], and treat it as
// immutable afterwards. Signing secrets live here rather than in package-level
// state so that two managers with different secrets can coexist in one process.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenConfig configures the credential codec. The access and refresh secrets
// are independent: compromise of one must not allow forging the other kind.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// SessionConfig configures the Redis-backed refresh-token store.
type SessionConfig struct {
	RedisPrefix string
}

// PasswordConfig holds the argon2id parameters and the minimum accepted
// plaintext length.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const (
	defaultAccessSecret  = "access-secret-key"
	defaultRefreshSecret = "refresh-secret-key"
)

// DefaultConfig returns a working development configuration: HS256 signing
// with placeholder secrets, 15 minute access tokens, 7 day refresh tokens,
// and moderate argon2id cost. The placeholder secrets are insecure and MUST
// be overridden before production use; see [Config.InsecureDefaults].
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessSecret:  []byte(defaultAccessSecret),
			RefreshSecret: []byte(defaultRefreshSecret),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "ak",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   6,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if len(c.Token.AccessSecret) == 0 {
		return errors.New("token access secret required")
	}
	if len(c.Token.RefreshSecret) == 0 {
		return errors.New("token refresh secret required")
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway out of range")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}

// InsecureDefaults lists the placeholder values still present in the
// configuration. A non-empty result means the config is unfit for production;
// the Builder logs a warning for each entry at startup.
func (c Config) InsecureDefaults() []string {
	var insecure []string
	if string(c.Token.AccessSecret) == defaultAccessSecret {
		insecure = append(insecure, "token access secret")
	}
	if string(c.Token.RefreshSecret) == defaultRefreshSecret {
		insecure = append(insecure, "token refresh secret")
	}
	return insecure
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = append([]byte(nil), cfg.Token.AccessSecret...)
	out.Token.RefreshSecret = append([]byte(nil), cfg.Token.RefreshSecret...)
	return out
}
