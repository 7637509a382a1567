package goInvite

import (
	"errors"
	"time"
)

// Config is the full engine configuration. All secrets are injected here at
// construction; the engine never reads the process environment.
type Config struct {
	Credential CredentialConfig
	Token      TokenConfig
	Session    SessionConfig
	Operator   OperatorConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig configures the signed session credential issued on
// consumption. SigningKey is required; its absence fails Build.
type CredentialConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	SigningKey    []byte
	PublicKey     []byte // ed25519 verification key; unused for hs256
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig bounds token values and quotas and controls value generation.
type TokenConfig struct {
	RedisPrefix       string
	GeneratedLength   int
	GenerationRetries int
	MinValueLength    int
	MaxValueLength    int
	MaxQuota          int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the per-identity session registry. RetentionWindow
// bounds how long inactive sessions stay in the active-index view; pruning is
// advisory and never deletes the underlying record.
type SessionConfig struct {
	RedisPrefix     string
	RetentionWindow time.Duration
}

// OperatorConfig carries the shared operator secret. Empty disables the
// operator capability entirely; VerifyOperator then always denies.
type OperatorConfig struct {
	Secret []byte
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

func defaultConfig() Config {
	return Config{
		Credential: CredentialConfig{
			TTL:           24 * time.Hour,
			SigningMethod: "hs256",
		},
		Token: TokenConfig{
			RedisPrefix:       "ivt",
			GeneratedLength:   4,
			GenerationRetries: 8,
			MinValueLength:    3,
			MaxValueLength:    50,
			MaxQuota:          1000,
		},
		Session: SessionConfig{
			RedisPrefix:     "ivs",
			RetentionWindow: 24 * time.Hour,
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

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Credential.SigningKey = cloneBytes(cfg.Credential.SigningKey)
	out.Credential.PublicKey = cloneBytes(cfg.Credential.PublicKey)
	out.Operator.Secret = cloneBytes(cfg.Operator.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks configuration consistency. It is called by [Builder.Build];
// direct callers only need it when assembling configs programmatically.
func (c *Config) Validate() error {
	if c.Credential.TTL <= 0 {
		return errors.New("Credential.TTL must be positive")
	}
	if len(c.Credential.SigningKey) == 0 {
		return errors.New("Credential.SigningKey is required")
	}
	switch c.Credential.SigningMethod {
	case "", "hs256", "ed25519":
	default:
		return errors.New("Credential.SigningMethod must be hs256 or ed25519")
	}
	if c.Credential.Leeway < 0 || c.Credential.Leeway > 2*time.Minute {
		return errors.New("Credential.Leeway out of range")
	}
	if c.Token.MinValueLength < 1 || c.Token.MaxValueLength < c.Token.MinValueLength {
		return errors.New("Token value length bounds invalid")
	}
	if c.Token.GeneratedLength < c.Token.MinValueLength || c.Token.GeneratedLength > c.Token.MaxValueLength {
		return errors.New("Token.GeneratedLength outside value length bounds")
	}
	if c.Token.GenerationRetries < 1 {
		return errors.New("Token.GenerationRetries must be at least 1")
	}
	if c.Token.MaxQuota < 1 {
		return errors.New("Token.MaxQuota must be at least 1")
	}
	if c.Token.RedisPrefix == "" || c.Session.RedisPrefix == "" {
		return errors.New("redis prefixes must not be empty")
	}
	if c.Token.RedisPrefix == c.Session.RedisPrefix {
		return errors.New("token and session redis prefixes must differ")
	}
	if c.Session.RetentionWindow < 0 {
		return errors.New("Session.RetentionWindow must not be negative")
	}
	return nil
}
