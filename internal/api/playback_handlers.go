package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/reelacademy/ra-lms/internal/drm"
	"github.com/reelacademy/ra-lms/internal/playback"
)

// VideoInfoClient is satisfied by drm.Client.
type VideoInfoClient interface {
	GetVideoInfo(ctx context.Context, videoID string) (*drm.VideoInfo, error)
}

// PlaybackHandler serves the authorization boundary: one short-lived,
// watermarked credential per watch session.
type PlaybackHandler struct {
	Authorizer *playback.Authorizer
	Videos     VideoInfoClient
	PlayerHost string
}

type otpRequest struct {
	VideoID    string `json:"videoId"`
	LicenseKey string `json:"licenseKey,omitempty"`
}

type otpResponse struct {
	Success  bool     `json:"success"`
	Data     *drm.OTP `json:"data,omitempty"`
	EmbedURL string   `json:"embedUrl,omitempty"`
}

// IssueOTP converts a held license into a playback credential. Without a
// license key this is anonymous free-preview playback, no watermark.
func (h *PlaybackHandler) IssueOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	otp, err := h.Authorizer.Authorize(r.Context(), req.VideoID, req.LicenseKey)
	if err != nil {
		if errors.Is(err, playback.ErrMissingVideoID) {
			respondError(w, http.StatusBadRequest, "Video id is required.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to issue playback credential.")
		return
	}

	respondJSON(w, http.StatusOK, otpResponse{
		Success:  true,
		Data:     otp,
		EmbedURL: playback.EmbedURL(h.PlayerHost, otp),
	})
}

// VideoInfo provides provider metadata for admin tooling. Not on the
// playback path.
func (h *PlaybackHandler) VideoInfo(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("id")
	if videoID == "" {
		respondError(w, http.StatusBadRequest, "Video id is required.")
		return
	}

	info, err := h.Videos.GetVideoInfo(r.Context(), videoID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Video not found. Check the video id.")
		return
	}

	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: info})
}
