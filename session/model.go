package session

import "time"

// Session is one authenticated continuation of access minted by a token
// consumption. UserAgent and IPAddress are captured at creation and immutable.
type Session struct {
	SessionID  string
	IdentityID string
	TokenValue string

	UserAgent string
	IPAddress string

	Active       bool
	CreatedAt    time.Time
	LastActivity time.Time
}
