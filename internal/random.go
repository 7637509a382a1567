package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

// SessionID is a 128-bit unpredictable session identifier.
type SessionID [16]byte

// NewSessionID draws a fresh session ID from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes the string form produced by [SessionID.String].
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

const tokenValueChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewTokenValue generates a random alphanumeric token value of the given
// length. Token values are display strings, not bearer secrets in themselves;
// uniqueness is enforced by the store, not by entropy alone.
func NewTokenValue(length int) (string, error) {
	if length < 1 {
		return "", errors.New("invalid token value length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(tokenValueChars)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(tokenValueChars[n.Int64()])
	}

	return b.String(), nil
}
