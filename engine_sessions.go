package goInvite

import (
	"context"
	"iter"
	"strconv"
)

// TouchSession refreshes the last-activity timestamp of an active session.
// Missing or revoked sessions are a silent no-op; the return value reports
// whether the touch was applied.
func (e *Engine) TouchSession(ctx context.Context, identityID, sessionID string) (bool, error) {
	if e == nil || e.sessions == nil {
		return false, ErrEngineNotReady
	}

	applied, err := e.sessions.Touch(ctx, identityID, sessionID)
	if err != nil {
		return false, storeErr(err)
	}
	return applied, nil
}

// RevokeSession marks one session inactive. Idempotent: revoking a missing or
// already-revoked session succeeds and reports false. The record is retained
// for audit; only the Active flag flips.
func (e *Engine) RevokeSession(ctx context.Context, identityID, sessionID string) (bool, error) {
	if e == nil || e.sessions == nil {
		return false, ErrEngineNotReady
	}

	applied, err := e.sessions.Deactivate(ctx, identityID, sessionID)
	if err != nil {
		return false, storeErr(err)
	}
	if applied {
		e.metricInc(MetricSessionRevoked)
		e.emitAudit(ctx, auditEventSessionRevoked, true, identityID, "", sessionID, nil, nil)
	}
	return applied, nil
}

// RevokeAllSessions marks every session of an identity inactive in one atomic
// step and returns how many were live. Sessions created after the call begins
// are unaffected.
func (e *Engine) RevokeAllSessions(ctx context.Context, identityID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	revoked, err := e.sessions.DeactivateAll(ctx, identityID)
	if err != nil {
		return 0, storeErr(err)
	}
	e.metricInc(MetricSessionRevokedAll)
	e.emitAudit(ctx, auditEventSessionRevokedAll, true, identityID, "", "", nil, func() map[string]string {
		return map[string]string{
			"revoked": strconv.Itoa(revoked),
		}
	})
	return revoked, nil
}

// ActiveSessions returns the identity's active sessions as a lazy sequence
// ordered by creation time ascending. The sequence is finite and restartable;
// each range re-reads the registry. A store failure ends the sequence with a
// non-nil error value.
func (e *Engine) ActiveSessions(ctx context.Context, identityID string) iter.Seq2[*Session, error] {
	if e == nil || e.sessions == nil {
		return func(yield func(*Session, error) bool) {
			yield(nil, ErrEngineNotReady)
		}
	}

	inner := e.sessions.Active(ctx, identityID)
	return func(yield func(*Session, error) bool) {
		for sess, err := range inner {
			if err != nil {
				yield(nil, storeErr(err))
				return
			}
			if !yield(sess, nil) {
				return
			}
		}
	}
}

// PruneSessions trims sessions from the identity's registry view once they
// have been inactive longer than the configured retention window. Records are
// never deleted; pruning only removes index entries so long-dead sessions stop
// appearing in scans. Returns the number of entries pruned.
func (e *Engine) PruneSessions(ctx context.Context, identityID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	pruned, err := e.sessions.Prune(ctx, identityID, e.config.Session.RetentionWindow)
	if err != nil {
		return pruned, storeErr(err)
	}
	if pruned > 0 {
		e.emitAudit(ctx, auditEventSessionsPruned, true, identityID, "", "", nil, func() map[string]string {
			return map[string]string{
				"pruned": strconv.Itoa(pruned),
			}
		})
	}
	return pruned, nil
}

// GetSession retrieves one session record, active or revoked.
func (e *Engine) GetSession(ctx context.Context, identityID, sessionID string) (*Session, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	sess, err := e.sessions.Get(ctx, identityID, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	return sess, nil
}
