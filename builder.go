package goInvite

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goInvite/credential"
	"github.com/MrEthical07/goInvite/session"
	"github.com/MrEthical07/goInvite/token"
)

// Builder assembles an [Engine]. Configure it during initialization and call
// Build exactly once; a builder is not safe for concurrent use.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration. Call it before the more
// specific With* setters or they will be overwritten.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing both the token and session stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSigningKey sets the credential signing key. Required; Build fails
// without one.
func (b *Builder) WithSigningKey(key []byte) *Builder {
	b.config.Credential.SigningKey = cloneBytes(key)
	return b
}

// WithOperatorSecret sets the shared operator secret. Leaving it unset
// disables the operator capability.
func (b *Builder) WithOperatorSecret(secret []byte) *Builder {
	b.config.Operator.Secret = cloneBytes(secret)
	return b
}

// WithAuditSink sets the sink receiving audit events and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authorize latency histogram. It has no
// effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and constructs the engine. The builder
// cannot be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	method := b.config.Credential.SigningMethod
	if method == "" {
		method = string(credential.MethodHS256)
	}

	creds, err := credential.NewManager(credential.Config{
		DefaultTTL:    b.config.Credential.TTL,
		SigningMethod: credential.SigningMethod(method),
		SigningKey:    b.config.Credential.SigningKey,
		PublicKey:     b.config.Credential.PublicKey,
		Issuer:        b.config.Credential.Issuer,
		Leeway:        b.config.Credential.Leeway,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:     b.config,
		tokenStore: token.NewStore(b.redis, b.config.Token.RedisPrefix),
		sessions:   session.NewStore(b.redis, b.config.Session.RedisPrefix),
		creds:      creds,
		metrics:    NewMetrics(b.config.Metrics),
	}
	e.audit = newAuditDispatcher(b.config.Audit, b.auditSink)

	b.built = true
	return e, nil
}
