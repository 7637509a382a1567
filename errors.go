package goInvite

import "errors"

var (
	// ErrTokenNotFound is returned when no token exists for the presented value or ID.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenInactive is returned when the token exists but has been deactivated.
	ErrTokenInactive = errors.New("token inactive")
	// ErrTokenExhausted is returned when the token has no remaining uses.
	ErrTokenExhausted = errors.New("token exhausted")
	// ErrTokenValueInvalid is returned when a token value is outside the 3-50 character range.
	ErrTokenValueInvalid = errors.New("invalid token value")
	// ErrQuotaInvalid is returned when a quota is outside the 1-1000 range.
	ErrQuotaInvalid = errors.New("invalid token quota")
	// ErrDuplicateToken is returned when creating a token whose value already exists.
	ErrDuplicateToken = errors.New("token already exists")
	// ErrGenerationExhausted is returned when token value generation keeps colliding
	// past the configured retry budget.
	ErrGenerationExhausted = errors.New("token value generation exhausted")
	// ErrIdentityNotFound is returned when no identity exists for the given ID.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityGone is returned by Authorize when the identity or token referenced
	// by a credential no longer exists.
	ErrIdentityGone = errors.New("identity no longer exists")
	// ErrSessionNotFound is returned when no session exists for the given ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionRevoked is returned by Authorize when the referenced session is
	// missing or no longer active.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrSessionCreationFailed is returned when a session could not be recorded
	// after a successful consumption.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrCredentialMissing is returned by Authorize when no credential was presented.
	ErrCredentialMissing = errors.New("credential missing")
	// ErrCredentialInvalid is returned when a credential is malformed or its
	// signature does not verify.
	ErrCredentialInvalid = errors.New("invalid credential")
	// ErrCredentialExpired is returned when a credential's expiry has passed.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrOperatorDenied is returned when a presented operator secret does not match.
	ErrOperatorDenied = errors.New("operator secret mismatch")
	// ErrForbidden is returned when an authorized identity lacks access to a resource.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	// The engine performs no internal retries; retry policy belongs to the caller.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ReasonCode maps an engine error to a stable machine-checkable rejection code.
// Codes are part of the public contract and never change between releases;
// human-readable messages may. Unknown errors map to "internal_error", nil to "".
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenNotFound):
		return "token_not_found"
	case errors.Is(err, ErrTokenInactive):
		return "token_inactive"
	case errors.Is(err, ErrTokenExhausted):
		return "token_exhausted"
	case errors.Is(err, ErrTokenValueInvalid):
		return "token_value_invalid"
	case errors.Is(err, ErrQuotaInvalid):
		return "quota_invalid"
	case errors.Is(err, ErrDuplicateToken):
		return "duplicate_token"
	case errors.Is(err, ErrGenerationExhausted):
		return "generation_exhausted"
	case errors.Is(err, ErrIdentityNotFound):
		return "identity_not_found"
	case errors.Is(err, ErrIdentityGone):
		return "identity_gone"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, ErrSessionCreationFailed):
		return "session_creation_failed"
	case errors.Is(err, ErrCredentialMissing):
		return "credential_missing"
	case errors.Is(err, ErrCredentialInvalid):
		return "credential_invalid"
	case errors.Is(err, ErrCredentialExpired):
		return "credential_expired"
	case errors.Is(err, ErrOperatorDenied):
		return "operator_denied"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrEngineNotReady):
		return "engine_not_ready"
	default:
		return "internal_error"
	}
}
