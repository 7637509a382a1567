package goInvite

import (
	"github.com/MrEthical07/goInvite/session"
	"github.com/MrEthical07/goInvite/token"
)

// Token is the public view of a stored invitation token. Mutations go through
// Engine methods only; a Token value returned by the engine is a snapshot.
type Token = token.Token

// Identity is the durable principal materialized on the first successful
// consumption of a token. One identity per token, one token per identity.
type Identity = token.Identity

// Session is one authenticated continuation of access following a consumption.
// Sessions are never physically deleted; revocation flips Active to false and
// the record is retained for audit.
type Session = session.Session

// CreateTokenRequest is the input for [Engine.CreateToken]. Value is optional;
// when empty a short random alphanumeric value is generated.
type CreateTokenRequest struct {
	Value      string
	OwnerLabel string
	Quota      int
}

// UpdateTokenRequest is the input for [Engine.UpdateToken]. Nil fields are
// left untouched. Raising Quota on an exhausted token makes it consumable
// again without resetting its use counter; Active set to true on a token whose
// uses still meet its quota is overridden back to inactive by the store
// invariant.
type UpdateTokenRequest struct {
	OwnerLabel *string
	Quota      *int
	Active     *bool
}

// ConsumeResult is returned by [Engine.Consume] after one use of a token has
// been atomically spent.
type ConsumeResult struct {
	Identity      *Identity
	Session       *Session
	RemainingUses int
	Credential    string
}

// TokenSummary is the read-only token digest attached to an AuthorizedContext.
type TokenSummary struct {
	Value         string
	OwnerLabel    string
	Quota         int
	Uses          int
	RemainingUses int
}

// AuthorizedContext is returned by [Engine.Authorize] for an accepted
// credential. IsOperator is granted by the separate operator-secret check,
// never derived from token or session state.
type AuthorizedContext struct {
	Identity   *Identity
	Token      TokenSummary
	Session    *Session
	IsOperator bool
}

// TokenFilter selects which tokens [Engine.ListTokens] returns.
type TokenFilter int

const (
	// TokenFilterAll returns every token regardless of state.
	TokenFilterAll TokenFilter = iota
	// TokenFilterActive returns only active tokens.
	TokenFilterActive
	// TokenFilterInactive returns only deactivated tokens.
	TokenFilterInactive
)
