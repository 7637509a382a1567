package credential

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		DefaultTTL:    time.Hour,
		SigningMethod: MethodHS256,
		SigningKey:    []byte("manager-test-key-0123456789abcdef"),
		Issuer:        "goinvite-test",
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	cfg := testConfig()
	cfg.SigningKey = nil
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected missing signing key to be rejected")
	}

	cfg = testConfig()
	cfg.DefaultTTL = 0
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}

	cfg = testConfig()
	cfg.SigningMethod = "none"
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected unknown method to be rejected")
	}

	cfg = testConfig()
	cfg.Leeway = 5 * time.Minute
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected oversized leeway to be rejected")
	}
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	m := newTestManager(t)

	raw, err := m.Issue("identity-1", "token-value", "session-1", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if claims.IdentityID != "identity-1" || claims.TokenValue != "token-value" || claims.SessionID != "session-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 59*time.Minute || ttl > time.Hour {
		t.Fatalf("expected default one hour TTL, got %v", ttl)
	}
}

func TestDecodeExpired(t *testing.T) {
	m := newTestManager(t)

	raw, err := m.Issue("identity-1", "token-value", "session-1", -time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Decode(raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestDecodeTamperedAndGarbage(t *testing.T) {
	m := newTestManager(t)

	raw, err := m.Issue("identity-1", "token-value", "session-1", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tampered := []byte(raw)
	tampered[len(tampered)-1] ^= 0x01
	if _, err := m.Decode(string(tampered)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for tampered credential, got %v", err)
	}

	if _, err := m.Decode("garbage"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for garbage, got %v", err)
	}
}

func TestDecodeWrongKey(t *testing.T) {
	m := newTestManager(t)

	other := testConfig()
	other.SigningKey = []byte("a-completely-different-signing-key")
	m2, err := NewManager(other)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	raw, err := m2.Issue("identity-1", "token-value", "session-1", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Decode(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid across keys, got %v", err)
	}
}

func TestDecodeRejectsEmptyIdentifiers(t *testing.T) {
	m := newTestManager(t)

	raw, err := m.Issue("", "token-value", "session-1", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Decode(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for empty identity id, got %v", err)
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	cfg := Config{
		DefaultTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		SigningKey:    priv,
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	raw, err := m.Issue("identity-1", "token-value", "session-1", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := m.Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if claims.SessionID != "session-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
