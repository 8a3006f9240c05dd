// Package playback converts "this session holds a valid license" into a
// short-lived, watermarked permission to stream one video.
package playback

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/reelacademy/ra-lms/internal/data"
	"github.com/reelacademy/ra-lms/internal/drm"
	"github.com/reelacademy/ra-lms/internal/license"
)

var ErrMissingVideoID = errors.New("video id required")

// LicenseLookup is the read-only slice of the record store the authorizer
// needs for watermark construction.
type LicenseLookup interface {
	GetByKey(ctx context.Context, key string) (*data.License, error)
}

// OTPIssuer is satisfied by drm.Client.
type OTPIssuer interface {
	IssueOTP(ctx context.Context, videoID, watermark string) (*drm.OTP, error)
}

type Metrics interface {
	OTPIssued()
	OTPFailed()
	ObserveDRM(d time.Duration)
}

type Authorizer struct {
	store   LicenseLookup
	issuer  OTPIssuer
	metrics Metrics
}

func NewAuthorizer(store LicenseLookup, issuer OTPIssuer, metrics Metrics) *Authorizer {
	return &Authorizer{store: store, issuer: issuer, metrics: metrics}
}

// Watermark builds the overlay text for a license: the admin-entered memo
// (buyer label) plus the XXXX-XXXX key prefix, or just the prefix when no
// memo is set.
func Watermark(memo *string, key string) string {
	prefix := license.KeyPrefix(key)
	if memo != nil && *memo != "" {
		return fmt.Sprintf("%s (%s)", *memo, prefix)
	}
	return prefix
}

// Authorize issues a one-time playback credential for videoID. With a
// session license key present the credential carries that buyer's
// watermark; without one this is anonymous free-preview playback and no
// watermark is requested. An unknown key just skips the watermark; gating
// access is the validator's job, not this one's.
func (a *Authorizer) Authorize(ctx context.Context, videoID, licenseKey string) (*drm.OTP, error) {
	if videoID == "" {
		return nil, ErrMissingVideoID
	}

	var watermark string
	if licenseKey != "" {
		l, err := a.store.GetByKey(ctx, licenseKey)
		if err == nil {
			watermark = Watermark(l.Memo, l.Key)
		} else if !errors.Is(err, data.ErrRecordNotFound) {
			return nil, err
		}
	}

	start := time.Now()
	otp, err := a.issuer.IssueOTP(ctx, videoID, watermark)
	if a.metrics != nil {
		a.metrics.ObserveDRM(time.Since(start))
	}
	if err != nil {
		if a.metrics != nil {
			a.metrics.OTPFailed()
		}
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.OTPIssued()
	}
	return otp, nil
}

// EmbedURL is the player iframe location for one credential pair.
func EmbedURL(playerHost string, otp *drm.OTP) string {
	return fmt.Sprintf("https://%s/v2/?otp=%s&playbackInfo=%s&api=1",
		playerHost, url.QueryEscape(otp.OTP), url.QueryEscape(otp.PlaybackInfo))
}
