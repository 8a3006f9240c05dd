package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reelacademy/ra-lms/internal/auth"
	"github.com/reelacademy/ra-lms/internal/data"
	"github.com/reelacademy/ra-lms/internal/license"
	"github.com/reelacademy/ra-lms/internal/tokens"
)

// validDurations are the validity choices offered at key creation.
var validDurations = map[int]bool{7: true, 30: true, 90: true, 180: true, 365: true}

// AdminStore is the admin-facing slice of the record store.
type AdminStore interface {
	Insert(ctx context.Context, l *data.License) error
	List(ctx context.Context, limit, offset int) ([]*data.License, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Unbind(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// IssueSink receives key-creation notifications.
type IssueSink interface {
	LicenseIssued(ctx context.Context, key, memo string, expiresAt time.Time)
}

type AdminHandler struct {
	Store        AdminStore
	Tokens       *tokens.Manager
	Events       IssueSink
	Username     string
	PasswordHash string
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the configured admin credentials and issues an admin token.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	match, err := auth.CheckPassword(req.Password, h.PasswordHash)
	if err != nil || !match || req.Username != h.Username {
		respondError(w, http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	token, err := h.Tokens.GenerateAdminToken(req.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token.")
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: map[string]string{"token": token}})
}

type createLicenseRequest struct {
	ValidDays int    `json:"validDays"`
	Memo      string `json:"memo"`
}

type licenseView struct {
	ID             uuid.UUID  `json:"id"`
	Key            string     `json:"key"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	IsActive       bool       `json:"isActive"`
	IsExpired      bool       `json:"isExpired"`
	RemainingDays  int        `json:"remainingDays"`
	BoundEmail     *string    `json:"boundEmail,omitempty"`
	CurrentDevice  *string    `json:"currentDevice,omitempty"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	Memo           *string    `json:"memo,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func viewOf(l *data.License, now time.Time) licenseView {
	return licenseView{
		ID:             l.ID,
		Key:            l.Key,
		ExpiresAt:      l.ExpiresAt,
		IsActive:       l.IsActive,
		IsExpired:      !now.Before(l.ExpiresAt),
		RemainingDays:  license.RemainingDays(l.ExpiresAt, now),
		BoundEmail:     l.BoundAccountEmail,
		CurrentDevice:  l.CurrentDeviceID,
		LastAccessedAt: l.LastAccessedAt,
		Memo:           l.Memo,
		CreatedAt:      l.CreatedAt,
	}
}

// CreateLicense mints a key with an explicit validity duration; expiry is
// computed here, once, at creation.
func (h *AdminHandler) CreateLicense(w http.ResponseWriter, r *http.Request) {
	var req createLicenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if !validDurations[req.ValidDays] {
		respondError(w, http.StatusBadRequest, "validDays must be one of 7, 30, 90, 180, 365.")
		return
	}

	key, err := license.GenerateKey()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate key.")
		return
	}

	now := time.Now().UTC()
	l := &data.License{
		Key:       key,
		ExpiresAt: now.Add(time.Duration(req.ValidDays) * 24 * time.Hour),
		IsActive:  true,
	}
	if req.Memo != "" {
		l.Memo = &req.Memo
	}

	if err := h.Store.Insert(r.Context(), l); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create license.")
		return
	}

	if h.Events != nil {
		h.Events.LicenseIssued(r.Context(), l.Key, req.Memo, l.ExpiresAt)
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: viewOf(l, now)})
}

func (h *AdminHandler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 100)

	rows, err := h.Store.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list licenses.")
		return
	}

	now := time.Now().UTC()
	views := make([]licenseView, 0, len(rows))
	for _, l := range rows {
		views = append(views, viewOf(l, now))
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: views})
}

func (h *AdminHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *AdminHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid license id.")
		return
	}

	if err := h.Store.SetActive(r.Context(), id, active); err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true})
}

// Unbind detaches the bound account and clears the device claim. This is
// the only path that ever changes a bound account.
func (h *AdminHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid license id.")
		return
	}

	if err := h.Store.Unbind(r.Context(), id); err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true})
}

// DeleteLicense removes the row entirely. Expired keys are normally left
// in place; deletion is an explicit admin decision.
func (h *AdminHandler) DeleteLicense(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid license id.")
		return
	}

	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true})
}

func (h *AdminHandler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, data.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "License not found.")
		return
	}
	respondError(w, http.StatusInternalServerError, "Storage operation failed.")
}

func pageParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
