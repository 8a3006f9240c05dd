package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/reelacademy/ra-lms/internal/license"
	"github.com/reelacademy/ra-lms/internal/middleware"
	"github.com/reelacademy/ra-lms/internal/session"
	"github.com/reelacademy/ra-lms/internal/tokens"
)

// SessionStore is the write side of the session layer the binder hands
// off to.
type SessionStore interface {
	Create(ctx context.Context, id string, s session.Session) error
	Revoke(ctx context.Context, id string) error
}

// BindingHandler serves the two-step account gate: external identity first,
// license key second. A key cannot be redeemed anonymously.
type BindingHandler struct {
	Binder   *license.Binder
	Sessions SessionStore
	Tokens   *tokens.Manager
}

type bindRequest struct {
	AccountID    string `json:"externalAccountId"`
	AccountEmail string `json:"externalAccountEmail"`
	Key          string `json:"key"`
}

type sessionResponse struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message,omitempty"`
	Key           string    `json:"key"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RemainingDays int       `json:"remainingDays"`
	Token         string    `json:"token"`
}

// Lookup is the returning-user fast path: an account that already bound a
// key skips key entry entirely. 404 means "show the key entry form".
func (h *BindingHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		respondError(w, http.StatusBadRequest, "Account id is required.")
		return
	}

	binding, err := h.Binder.FindBinding(r.Context(), accountID)
	if err != nil {
		respondError(w, statusFor(err), license.Message(err))
		return
	}
	if binding == nil {
		respondError(w, http.StatusNotFound, "No license is linked to this account.")
		return
	}

	h.establishSession(w, r, binding)
}

// Bind redeems a typed key for the authenticated account and, on success,
// permanently ties the key to that identity.
func (h *BindingHandler) Bind(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if req.AccountID == "" {
		respondError(w, http.StatusBadRequest, "External account is required.")
		return
	}

	binding, err := h.Binder.Bind(r.Context(), license.Account{ID: req.AccountID, Email: req.AccountEmail}, req.Key)
	if err != nil {
		respondError(w, statusFor(err), license.Message(err))
		return
	}

	h.establishSession(w, r, binding)
}

// Logout clears the server-side session mirror. The client discards its
// token; nothing about the license row changes.
func (h *BindingHandler) Logout(w http.ResponseWriter, r *http.Request) {
	lc, ok := middleware.GetLicenseContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.Sessions.Revoke(r.Context(), lc.SessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to end session.")
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true})
}

// establishSession issues the session context value {key, expiresAt} as a
// viewer token plus its Redis mirror. The license's internal id never
// leaves the server here.
func (h *BindingHandler) establishSession(w http.ResponseWriter, r *http.Request, b *license.Binding) {
	sessionID := uuid.New().String()

	err := h.Sessions.Create(r.Context(), sessionID, session.Session{
		LicenseKey: b.Key,
		ExpiresAt:  b.ExpiresAt,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to establish session.")
		return
	}

	token, err := h.Tokens.GenerateViewerToken(b.Key, b.ExpiresAt, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to establish session.")
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{
		Success:       true,
		Key:           b.Key,
		ExpiresAt:     b.ExpiresAt,
		RemainingDays: license.RemainingDays(b.ExpiresAt, time.Now().UTC()),
		Token:         token,
	})
}
