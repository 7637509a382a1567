package goInvite

import (
	"context"
	"time"
)

const (
	auditEventTokenCreated      = "token_created"
	auditEventTokenUpdated      = "token_updated"
	auditEventTokenActivated    = "token_activated"
	auditEventTokenDeactivated  = "token_deactivated"
	auditEventTokenDeleted      = "token_deleted"
	auditEventConsumeSuccess    = "consume_success"
	auditEventConsumeFailure    = "consume_failure"
	auditEventIdentityCreated   = "identity_created"
	auditEventAuthorizeSuccess  = "authorize_success"
	auditEventAuthorizeRejected = "authorize_rejected"
	auditEventSessionRevoked    = "session_revoked"
	auditEventSessionRevokedAll = "session_revoked_all"
	auditEventSessionsPruned    = "sessions_pruned"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	tokenValue string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		IdentityID: identityID,
		TokenValue: tokenValue,
		SessionID:  sessionID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
	}
	if err != nil {
		event.Error = ReasonCode(err)
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}

	e.audit.Emit(ctx, event)
}
