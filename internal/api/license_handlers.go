package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/reelacademy/ra-lms/internal/fingerprint"
	"github.com/reelacademy/ra-lms/internal/license"
)

// LicenseHandler serves the validation boundary: validate, heartbeat and
// the device fingerprint helper.
type LicenseHandler struct {
	Validator *license.Validator
}

type validateRequest struct {
	Key      string `json:"key"`
	DeviceID string `json:"deviceId"`
}

type validateResponse struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty"`
	LicenseID     uuid.UUID `json:"licenseId,omitempty"`
	RemainingDays int       `json:"remainingDays,omitempty"`
}

// Validate is called on every session refresh and before playback. The
// reason for a rejection is in the message; the status stays a generic 401
// for all key-level failures.
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	key := license.NormalizeKey(req.Key)
	if !license.ValidKey(key) {
		respondError(w, http.StatusBadRequest, license.Message(license.ErrMalformedKey))
		return
	}
	if req.DeviceID == "" {
		respondError(w, http.StatusBadRequest, "Device identifier is required.")
		return
	}

	result, err := h.Validator.Validate(r.Context(), key, req.DeviceID)
	if err != nil {
		respondError(w, statusFor(err), license.Message(err))
		return
	}

	respondJSON(w, http.StatusOK, validateResponse{
		Success:       true,
		Message:       "License accepted.",
		ExpiresAt:     result.ExpiresAt,
		LicenseID:     result.LicenseID,
		RemainingDays: license.RemainingDays(result.ExpiresAt, time.Now().UTC()),
	})
}

// Refresh is the 5-minute heartbeat. It never errors to the caller: a lost
// device simply gets success=false and skips until the next interval.
func (h *LicenseHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	ok := h.Validator.Refresh(r.Context(), license.NormalizeKey(req.Key), req.DeviceID)
	respondJSON(w, http.StatusOK, Envelope{Success: ok})
}

// Fingerprint derives the device id server-side from client-reported
// signals, so the reduction rule lives in exactly one place.
func (h *LicenseHandler) Fingerprint(w http.ResponseWriter, r *http.Request) {
	var signals fingerprint.Signals
	if err := decodeJSON(r, &signals); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	respondJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    map[string]string{"deviceId": fingerprint.Derive(signals)},
	})
}

// statusFor maps the rejection taxonomy onto the HTTP surface: 400 for
// malformed input, 500 for persistence trouble, 401 for every key-level
// rejection (the message carries the distinction).
func statusFor(err error) int {
	switch {
	case errors.Is(err, license.ErrMalformedKey):
		return http.StatusBadRequest
	case errors.Is(err, license.ErrPersistence):
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}
