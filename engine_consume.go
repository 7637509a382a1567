package goInvite

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/MrEthical07/goInvite/internal"
	"github.com/MrEthical07/goInvite/session"
)

// Consume atomically spends one use of the token identified by value and, on
// success, materializes the token's identity (first consumption only), opens a
// new session, and issues a signed credential bound to all three.
//
// Exactly one concurrent caller wins each remaining use. A token whose quota
// is spent returns [ErrTokenExhausted] even if an operator flipped it back to
// active without raising the quota.
//
// Client IP and user agent are taken from the context when present (see
// [WithClientIP] and [WithUserAgent]) and recorded on the session.
func (e *Engine) Consume(ctx context.Context, value string) (*ConsumeResult, error) {
	return e.consume(ctx, value, nil, false)
}

// ConsumeWithPayload is [Engine.Consume] with an opaque payload attached to
// the token record. The payload replaces any previous one and is only stored
// when the consumption succeeds.
func (e *Engine) ConsumeWithPayload(ctx context.Context, value string, payload []byte) (*ConsumeResult, error) {
	return e.consume(ctx, value, payload, true)
}

func (e *Engine) consume(ctx context.Context, value string, payload []byte, payloadSet bool) (*ConsumeResult, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}

	if len(value) < e.config.Token.MinValueLength || len(value) > e.config.Token.MaxValueLength {
		e.metricInc(MetricConsumeNotFound)
		e.emitAudit(ctx, auditEventConsumeFailure, false, "", value, "", ErrTokenNotFound, nil)
		return nil, ErrTokenNotFound
	}

	uses, quota, err := e.tokenStore.Consume(ctx, value, payload, payloadSet)
	if err != nil {
		mapped := storeErr(err)
		switch {
		case errors.Is(mapped, ErrTokenNotFound):
			e.metricInc(MetricConsumeNotFound)
		case errors.Is(mapped, ErrTokenInactive):
			e.metricInc(MetricConsumeInactive)
		case errors.Is(mapped, ErrTokenExhausted):
			e.metricInc(MetricConsumeExhausted)
		}
		e.emitAudit(ctx, auditEventConsumeFailure, false, "", value, "", mapped, nil)
		return nil, mapped
	}

	identity, created, err := e.tokenStore.EnsureIdentity(ctx, value, value, uuid.NewString())
	if err != nil {
		return nil, storeErr(err)
	}
	if created {
		e.metricInc(MetricIdentityCreated)
		e.emitAudit(ctx, auditEventIdentityCreated, true, identity.ID, value, "", nil, nil)
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, ErrSessionCreationFailed
	}

	sess := &session.Session{
		SessionID:  sid.String(),
		IdentityID: identity.ID,
		TokenValue: value,
		UserAgent:  userAgentFromContext(ctx),
		IPAddress:  clientIPFromContext(ctx),
	}
	if err := e.sessions.Save(ctx, sess); err != nil {
		return nil, storeErr(err)
	}
	e.metricInc(MetricSessionCreated)

	cred, err := e.creds.Issue(identity.ID, value, sess.SessionID, 0)
	if err != nil {
		// The use is already spent; revoke the session so the failed
		// consumption leaves no live access behind.
		_, _ = e.sessions.Deactivate(ctx, identity.ID, sess.SessionID)
		return nil, err
	}

	remaining := quota - uses
	if remaining < 0 {
		remaining = 0
	}

	e.metricInc(MetricConsumeSuccess)
	e.emitAudit(ctx, auditEventConsumeSuccess, true, identity.ID, value, sess.SessionID, nil, func() map[string]string {
		return map[string]string{
			"remaining_uses": strconv.Itoa(remaining),
		}
	})

	return &ConsumeResult{
		Identity:      identity,
		Session:       sess,
		RemainingUses: remaining,
		Credential:    cred,
	}, nil
}
