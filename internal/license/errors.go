package license

import "errors"

// Terminal rejection reasons for validate/bind. None of these are retried
// by the server; DeviceConflict self-resolves after the cooldown.
var (
	ErrNotFound        = errors.New("license_not_found")
	ErrDeactivated     = errors.New("license_deactivated")
	ErrExpired         = errors.New("license_expired")
	ErrDeviceConflict  = errors.New("device_conflict")
	ErrAccountConflict = errors.New("account_conflict")
	ErrMalformedKey    = errors.New("malformed_key")
	ErrPersistence     = errors.New("persistence_failure")
)

// Message maps a rejection to the user-facing text. Every reason gets a
// distinct message so buyers can self-diagnose (wrong key vs. expired vs.
// bound elsewhere vs. in use elsewhere).
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "This license key does not exist."
	case errors.Is(err, ErrDeactivated):
		return "This license key has been deactivated."
	case errors.Is(err, ErrExpired):
		return "This license key has expired."
	case errors.Is(err, ErrDeviceConflict):
		return "This license is in use on another device. Please try again later."
	case errors.Is(err, ErrAccountConflict):
		return "This license is linked to a different account."
	case errors.Is(err, ErrMalformedKey):
		return "Please enter a valid license key."
	case errors.Is(err, ErrPersistence):
		return "An error occurred while processing the request."
	}
	return "An error occurred while processing the request."
}
