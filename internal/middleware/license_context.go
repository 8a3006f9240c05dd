package middleware

import (
	"context"
	"time"
)

type contextKey string

const (
	LicenseContextKey contextKey = "license_context"
)

// LicenseContext is the per-request session context value: the license key
// and expiry the viewer token carried, plus the session id for revocation.
// The internal license row id is deliberately absent.
type LicenseContext struct {
	LicenseKey string
	ExpiresAt  time.Time
	SessionID  string
}

// GetLicenseContext retrieves the LicenseContext from the context
func GetLicenseContext(ctx context.Context) (*LicenseContext, bool) {
	val, ok := ctx.Value(LicenseContextKey).(*LicenseContext)
	return val, ok
}

// WithLicenseContext attaches the LicenseContext to the context
func WithLicenseContext(ctx context.Context, lc *LicenseContext) context.Context {
	return context.WithValue(ctx, LicenseContextKey, lc)
}
