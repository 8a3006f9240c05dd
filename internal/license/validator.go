package license

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/reelacademy/ra-lms/internal/data"
)

const (
	// DeviceCooldown is how long the current device must be inactive
	// before another device may take the license over.
	DeviceCooldown = 30 * time.Minute

	// HeartbeatInterval is the cadence clients refresh at while a
	// session is open. Missed beats are skipped, not retried.
	HeartbeatInterval = 5 * time.Minute
)

// Store is the slice of the record store the validator and binder need.
// data.LicenseModel satisfies it.
type Store interface {
	GetByKey(ctx context.Context, key string) (*data.License, error)
	GetByBoundAccount(ctx context.Context, accountID string) (*data.License, error)
	ClaimDevice(ctx context.Context, id uuid.UUID, deviceID string, now time.Time) error
	Touch(ctx context.Context, key, deviceID string, now time.Time) (bool, error)
	BindAccount(ctx context.Context, id uuid.UUID, accountID, email string, now time.Time) error
}

// Metrics receives validation/bind outcomes. Optional.
type Metrics interface {
	ValidationResult(outcome string)
	BindResult(outcome string)
}

// Result is returned on successful validation. ExpiresAt and LicenseID feed
// session display and downstream progress records.
type Result struct {
	ExpiresAt time.Time
	LicenseID uuid.UUID
}

type Validator struct {
	store   Store
	metrics Metrics
}

func NewValidator(store Store, metrics Metrics) *Validator {
	return &Validator{store: store, metrics: metrics}
}

// Validate gates access for one key/device pair and maintains the
// single-active-device rule. On success the presented device becomes the
// current device and last_accessed_at is stamped; a success is never
// reported unless that write was durably applied.
//
// Exclusivity is soft: two devices racing past the cooldown check can both
// claim, and the store's single-row UPDATE decides the winner. The loser
// observes the winner's device on its next check. No row locking.
func (v *Validator) Validate(ctx context.Context, key, deviceID string) (*Result, error) {
	l, err := v.store.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			v.record("not_found")
			return nil, ErrNotFound
		}
		v.record("persistence_error")
		return nil, ErrPersistence
	}

	if !l.IsActive {
		v.record("deactivated")
		return nil, ErrDeactivated
	}

	now := time.Now().UTC()
	// Inclusive boundary: a license is already invalid at the exact
	// expiry instant.
	if !now.Before(l.ExpiresAt) {
		v.record("expired")
		return nil, ErrExpired
	}

	if l.CurrentDeviceID != nil && *l.CurrentDeviceID != deviceID {
		cooldownBoundary := now.Add(-DeviceCooldown)
		if l.LastAccessedAt != nil && l.LastAccessedAt.After(cooldownBoundary) {
			// Other device still within its active window. No mutation.
			v.record("device_conflict")
			return nil, ErrDeviceConflict
		}
		// Cooldown elapsed: this device takes over.
	}

	if err := v.store.ClaimDevice(ctx, l.ID, deviceID, now); err != nil {
		log.Printf("license: claim device failed for %s: %v", l.ID, err)
		v.record("persistence_error")
		return nil, ErrPersistence
	}

	v.record("success")
	return &Result{ExpiresAt: l.ExpiresAt, LicenseID: l.ID}, nil
}

// Refresh is the heartbeat. It bumps last_accessed_at only while deviceID
// still holds the license; false means another device has taken over and
// the caller's session is gone. Errors are swallowed; the next interval
// will try again.
func (v *Validator) Refresh(ctx context.Context, key, deviceID string) bool {
	ok, err := v.store.Touch(ctx, key, deviceID, time.Now().UTC())
	if err != nil {
		log.Printf("license: heartbeat failed for key %s: %v", KeyPrefix(key), err)
		return false
	}
	return ok
}

func (v *Validator) record(outcome string) {
	if v.metrics != nil {
		v.metrics.ValidationResult(outcome)
	}
}
