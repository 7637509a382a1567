package goInvite

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goInvite/session"
	"github.com/MrEthical07/goInvite/token"
)

// Authorize validates a previously issued credential and re-resolves all
// referenced state. The credential carries identifiers only, so every call
// checks the store: a revoked session or deactivated token rejects a
// credential that is still cryptographically valid.
//
// Rejections are checked in a fixed order and the first failure wins:
//
//  1. missing credential          -> ErrCredentialMissing
//  2. expired                     -> ErrCredentialExpired
//  3. bad signature or framing    -> ErrCredentialInvalid
//  4. token gone                  -> ErrTokenNotFound
//  5. identity gone or mismatched -> ErrIdentityGone
//  6. token deactivated           -> ErrTokenInactive
//  7. session gone or revoked     -> ErrSessionRevoked
//
// On success the session's last-activity timestamp is refreshed and an
// [AuthorizedContext] is returned. IsOperator is set only when the context
// carries the configured operator secret (see [WithOperatorSecret]); it is
// never derived from token or session state.
func (e *Engine) Authorize(ctx context.Context, rawCredential string) (*AuthorizedContext, error) {
	if e == nil || e.creds == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	authz, err := e.authorize(ctx, rawCredential)
	if e.metrics != nil {
		e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	}
	return authz, err
}

func (e *Engine) authorize(ctx context.Context, rawCredential string) (*AuthorizedContext, error) {
	if rawCredential == "" {
		return nil, e.rejectAuthorize(ctx, nil, ErrCredentialMissing)
	}

	claims, err := e.creds.Decode(rawCredential)
	if err != nil {
		mapped := mapCredentialErr(err)
		if errors.Is(mapped, ErrCredentialExpired) {
			e.metricInc(MetricCredentialExpired)
		} else {
			e.metricInc(MetricCredentialInvalid)
		}
		return nil, e.rejectAuthorize(ctx, nil, mapped)
	}

	tok, err := e.tokenStore.GetByValue(ctx, claims.TokenValue)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return nil, e.rejectAuthorize(ctx, claims, ErrTokenNotFound)
		}
		return nil, storeErr(err)
	}

	identity, err := e.tokenStore.GetIdentityByToken(ctx, claims.TokenValue)
	if err != nil {
		if errors.Is(err, token.ErrIdentityNotFound) {
			return nil, e.rejectAuthorize(ctx, claims, ErrIdentityGone)
		}
		return nil, storeErr(err)
	}
	if identity.ID != claims.IdentityID {
		return nil, e.rejectAuthorize(ctx, claims, ErrIdentityGone)
	}

	if !tok.Active {
		return nil, e.rejectAuthorize(ctx, claims, ErrTokenInactive)
	}

	sess, err := e.sessions.Get(ctx, claims.IdentityID, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, e.rejectAuthorize(ctx, claims, ErrSessionRevoked)
		}
		return nil, storeErr(err)
	}
	if !sess.Active {
		return nil, e.rejectAuthorize(ctx, claims, ErrSessionRevoked)
	}

	if _, err := e.sessions.Touch(ctx, claims.IdentityID, claims.SessionID); err != nil {
		return nil, storeErr(err)
	}
	sess.LastActivity = time.Now()

	isOperator := false
	if secret, ok := operatorSecretFromContext(ctx); ok {
		isOperator = e.VerifyOperator(secret)
	}

	e.metricInc(MetricAuthorizeSuccess)
	e.emitAudit(ctx, auditEventAuthorizeSuccess, true, identity.ID, tok.Value, sess.SessionID, nil, nil)

	return &AuthorizedContext{
		Identity: identity,
		Token: TokenSummary{
			Value:         tok.Value,
			OwnerLabel:    tok.OwnerLabel,
			Quota:         tok.Quota,
			Uses:          tok.Uses,
			RemainingUses: tok.RemainingUses(),
		},
		Session:    sess,
		IsOperator: isOperator,
	}, nil
}

// RequireOperator authorizes a credential and then demands the operator
// capability. Callers that only gate on the capability itself, without a
// credential, should use [Engine.VerifyOperator] directly.
func (e *Engine) RequireOperator(ctx context.Context, rawCredential string) (*AuthorizedContext, error) {
	authz, err := e.Authorize(ctx, rawCredential)
	if err != nil {
		return nil, err
	}
	if !authz.IsOperator {
		return nil, ErrOperatorDenied
	}
	return authz, nil
}

func (e *Engine) rejectAuthorize(ctx context.Context, claims *CredentialClaims, reason error) error {
	e.metricInc(MetricAuthorizeRejected)

	var identityID, tokenValue, sessionID string
	if claims != nil {
		identityID = claims.IdentityID
		tokenValue = claims.TokenValue
		sessionID = claims.SessionID
	}
	e.emitAudit(ctx, auditEventAuthorizeRejected, false, identityID, tokenValue, sessionID, reason, nil)

	return reason
}
