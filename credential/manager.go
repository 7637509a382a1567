package credential

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpired is returned by Decode when the credential expiry has passed.
var ErrExpired = errors.New("credential expired")

// ErrInvalid is returned by Decode for a malformed credential or one whose
// signature does not verify.
var ErrInvalid = errors.New("credential invalid")

// SigningMethod selects the credential signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 using the shared SigningKey.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key.
	MethodEd25519 SigningMethod = "ed25519"
)

// Config configures a [Manager]. DefaultTTL applies when Issue is called with
// a non-positive TTL. SigningKey is mandatory.
type Config struct {
	DefaultTTL    time.Duration
	SigningMethod SigningMethod
	SigningKey    []byte
	PublicKey     []byte // ed25519 verification key; ignored for hs256
	Issuer        string
	Leeway        time.Duration
}

// Claims is the signed payload. Only identifiers are embedded; no mutable
// token or session state rides inside the credential.
type Claims struct {
	IdentityID string `json:"iid"`
	TokenValue string `json:"tok"`
	SessionID  string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager issues and decodes signed session credentials. All operations are
// pure; a Manager performs no store access and is safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates the signing configuration. A missing signing key is a
// hard error: the engine must refuse to start without one.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.DefaultTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.SigningKey) == 0 {
			return nil, errors.New("hs256 requires signing key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.SigningKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// Issue mints a signed credential binding identity, token, and session.
// Expiry is now + ttl; a non-positive ttl falls back to the configured
// default. Negative expiry is representable on purpose so callers can mint
// already-expired credentials in tests.
func (m *Manager) Issue(identityID, tokenValue, sessionID string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	now := time.Now()
	claims := Claims{
		IdentityID: identityID,
		TokenValue: tokenValue,
		SessionID:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(m.getMethod(), claims)
	signKey, err := m.getSignKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// Decode verifies signature and expiry and returns the embedded identifiers.
// It proves provenance, not liveness: a decoded credential may reference a
// session that has since been revoked.
func (m *Manager) Decode(raw string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.getVerifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.IdentityID == "" || claims.TokenValue == "" || claims.SessionID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) getSignKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPrivateKey(m.config.SigningKey)
	default:
		return m.config.SigningKey, nil
	}
}

func (m *Manager) getVerifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		if len(m.config.PublicKey) > 0 {
			return parseEdPublicKey(m.config.PublicKey)
		}
		priv, err := parseEdPrivateKey(m.config.SigningKey)
		if err != nil {
			return nil, err
		}
		return priv.Public(), nil
	default:
		return m.config.SigningKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
