package authkit

import (
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/venlock/authkit/password"
	"github.com/venlock/authkit/session"
	"github.com/venlock/authkit/token"
)

// Builder assembles a [Manager] step by step. Collaborators with no
// reasonable default (Redis client, account provider) are required; everything
// else falls back to [DefaultConfig]. A Builder is single-use.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	accounts AccountProvider
	sink     AuditSink
	built    bool
}

// New starts a Builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountProvider sets the account persistence collaborator.
func (b *Builder) WithAccountProvider(provider AccountProvider) *Builder {
	b.accounts = provider
	return b
}

// WithAuditSink enables audit emission into the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, warns about placeholder secrets, and
// returns a ready Manager. The caller owns the Redis client's lifecycle;
// [Manager.Close] stops only the audit dispatcher.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	for _, name := range b.config.InsecureDefaults() {
		log.Printf("authkit: WARNING: %s is set to its insecure default; override it before production use", name)
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  b.config.Token.AccessSecret,
		RefreshSecret: b.config.Token.RefreshSecret,
		AccessTTL:     b.config.Token.AccessTTL,
		RefreshTTL:    b.config.Token.RefreshTTL,
		Issuer:        b.config.Token.Issuer,
		Leeway:        b.config.Token.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
		MinLength:   b.config.Password.MinLength,
	})
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	return &Manager{
		config:    b.config,
		codec:     codec,
		sessions:  session.NewStore(b.redis, b.config.Session.RedisPrefix),
		passwords: hasher,
		accounts:  b.accounts,
		audit:     newAuditDispatcher(b.config.Audit, b.sink),
		metrics:   NewMetrics(b.config.Metrics),
	}, nil
}
