package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenType string

const (
	Viewer TokenType = "viewer"
	Admin  TokenType = "admin"
)

// Claims carry the session context value {key, expiresAt} for viewers
// (never the license's internal row id), or the admin username for admins.
type Claims struct {
	LicenseKey string    `json:"license_key,omitempty"`
	TokenType  TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type Manager struct {
	signingKey []byte
}

func NewManager(signingKey string) *Manager {
	return &Manager{signingKey: []byte(signingKey)}
}

// GenerateViewerToken issues the session token handed out after a
// successful bind or fast-path match. It expires with the license (capped
// to the session layer's TTL by Redis, not here) and its jti doubles as the
// Redis session id so logout can revoke it.
func (m *Manager) GenerateViewerToken(licenseKey string, expiresAt time.Time, sessionID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		LicenseKey: licenseKey,
		TokenType:  Viewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        sessionID,
			Subject:   licenseKey,
		},
	}
	return m.sign(claims)
}

func (m *Manager) GenerateAdminToken(username string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		TokenType: Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
			Subject:   username,
		},
	}
	return m.sign(claims)
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	// Kid for future key rotation, even with a single key today.
	token.Header["kid"] = "v1"
	return token.SignedString(m.signingKey)
}

func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
