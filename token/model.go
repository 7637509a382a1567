package token

import "time"

// Token is a finite-use shared secret. Uses is monotonically non-decreasing
// and never exceeds Quota; Active is false whenever Uses >= Quota.
type Token struct {
	ID         string
	Value      string
	OwnerLabel string
	Quota      int
	Uses       int
	Active     bool
	CreatedAt  time.Time
	LastUsed   time.Time // zero when never consumed
	Payload    []byte    // latest attached payload, nil when none
}

// RemainingUses reports how many consumptions are left, never negative.
func (t *Token) RemainingUses() int {
	if t.Uses >= t.Quota {
		return 0
	}
	return t.Quota - t.Uses
}

// Exhausted reports whether the token has spent its full quota.
func (t *Token) Exhausted() bool {
	return t.Uses >= t.Quota
}

// Identity is the principal permanently bound to a token, created on its
// first successful consumption.
type Identity struct {
	ID           string
	DisplayLabel string
	TokenValue   string
	CreatedAt    time.Time
	LoginCount   int
	LastLogin    time.Time
}
