package goInvite

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goInvite/credential"
	"github.com/MrEthical07/goInvite/session"
	"github.com/MrEthical07/goInvite/token"
)

// CredentialClaims is the decoded credential payload returned by
// [Engine.DecodeCredential].
type CredentialClaims = credential.Claims

// Engine is the invitation token authorization engine. Build one through
// [Builder]; it is immutable and safe for concurrent use afterwards.
type Engine struct {
	config     Config
	tokenStore *token.Store
	sessions   *session.Store
	creds      *credential.Manager
	audit      *auditDispatcher
	metrics    *Metrics
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// IssueCredential mints a signed credential for an existing active session.
// ttl <= 0 uses the configured default. Consume already issues a credential;
// this is for callers that need a fresh one mid-session.
func (e *Engine) IssueCredential(ctx context.Context, identityID, tokenValue, sessionID string, ttl time.Duration) (string, error) {
	if e == nil || e.creds == nil {
		return "", ErrEngineNotReady
	}

	sess, err := e.sessions.Get(ctx, identityID, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", ErrSessionRevoked
		}
		return "", storeErr(err)
	}
	if !sess.Active || sess.TokenValue != tokenValue {
		return "", ErrSessionRevoked
	}

	return e.creds.Issue(identityID, tokenValue, sessionID, ttl)
}

// DecodeCredential verifies signature and expiry and returns the embedded
// identifiers. It does not consult the store; use [Engine.Authorize] to prove
// the referenced session is still live.
func (e *Engine) DecodeCredential(raw string) (*CredentialClaims, error) {
	if e == nil || e.creds == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.creds.Decode(raw)
	if err != nil {
		return nil, mapCredentialErr(err)
	}
	return claims, nil
}

// VerifyOperator compares a presented secret against the configured operator
// secret in constant time. An empty configured secret disables the capability
// and always denies.
func (e *Engine) VerifyOperator(secret string) bool {
	if e == nil || len(e.config.Operator.Secret) == 0 {
		return false
	}

	ok := subtle.ConstantTimeCompare([]byte(secret), e.config.Operator.Secret) == 1
	if ok {
		e.metricInc(MetricOperatorGranted)
	} else {
		e.metricInc(MetricOperatorDenied)
	}
	return ok
}

func mapCredentialErr(err error) error {
	switch {
	case errors.Is(err, credential.ErrExpired):
		return ErrCredentialExpired
	case errors.Is(err, credential.ErrInvalid):
		return ErrCredentialInvalid
	default:
		return err
	}
}

// storeErr lifts store-level errors into the engine's public taxonomy.
// Transport failures surface as ErrStoreUnavailable and are never retried
// here.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrRedisUnavailable), errors.Is(err, session.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.Is(err, token.ErrNotFound):
		return ErrTokenNotFound
	case errors.Is(err, token.ErrInactive):
		return ErrTokenInactive
	case errors.Is(err, token.ErrExhausted):
		return ErrTokenExhausted
	case errors.Is(err, token.ErrDuplicate):
		return ErrDuplicateToken
	case errors.Is(err, token.ErrIdentityNotFound):
		return ErrIdentityNotFound
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	default:
		return err
	}
}
