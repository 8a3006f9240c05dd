package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/reelacademy/ra-lms/internal/session"
	"github.com/reelacademy/ra-lms/internal/tokens"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*tokens.Claims, error)
}

// SessionChecker is satisfied by session.Manager.
type SessionChecker interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

type Auth struct {
	tokens   TokenValidator
	sessions SessionChecker
}

func NewAuth(t TokenValidator, s SessionChecker) *Auth {
	return &Auth{tokens: t, sessions: s}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Viewer verifies a viewer token and checks the Redis session is still
// alive, so a logged-out token stops working immediately even though the
// JWT itself has not expired. Fail closed on session-store errors.
func (m *Auth) Viewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := m.tokens.ValidateToken(tokenString)
		if err != nil || claims.TokenType != tokens.Viewer {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if _, err := m.sessions.Get(r.Context(), claims.ID); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		lc := &LicenseContext{
			LicenseKey: claims.LicenseKey,
			ExpiresAt:  claims.ExpiresAt.Time,
			SessionID:  claims.ID,
		}
		next.ServeHTTP(w, r.WithContext(WithLicenseContext(r.Context(), lc)))
	})
}

// Admin verifies an admin token. Admin sessions are token-lifetime only; no
// server-side session row.
func (m *Auth) Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := m.tokens.ValidateToken(tokenString)
		if err != nil || claims.TokenType != tokens.Admin {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
