package license

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/reelacademy/ra-lms/internal/data"
)

// Account is the externally-authenticated identity a key gets tied to.
// ID is the identity provider's stable user id, not an email.
type Account struct {
	ID    string
	Email string
}

// Binding is what a successful bind or fast-path match hands to the session
// layer: the key and its expiry, never the internal row id.
type Binding struct {
	Key       string
	ExpiresAt time.Time
}

// EventSink receives bind notifications for downstream bookkeeping.
// Optional; publishing is best-effort.
type EventSink interface {
	LicenseBound(ctx context.Context, key, accountID string)
}

// Binder enforces the 1:1 account-to-key rule, decided at first redemption.
// A key cannot be redeemed anonymously, and once redeemed stays tied to one
// identity until an administrator detaches it.
type Binder struct {
	store   Store
	events  EventSink
	metrics Metrics
}

func NewBinder(store Store, events EventSink, metrics Metrics) *Binder {
	return &Binder{store: store, events: events, metrics: metrics}
}

// FindBinding is the returning-user fast path. A valid bound license skips
// key entry entirely; a bound-but-expired one surfaces ErrExpired rather
// than falling through to key entry. (nil, nil) means no binding exists and
// the user must type a key.
func (b *Binder) FindBinding(ctx context.Context, accountID string) (*Binding, error) {
	l, err := b.store.GetByBoundAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, ErrPersistence
	}

	if !time.Now().UTC().Before(l.ExpiresAt) {
		return nil, ErrExpired
	}
	return &Binding{Key: l.Key, ExpiresAt: l.ExpiresAt}, nil
}

// Bind redeems a typed key for an authenticated account. Re-binding the same
// account to its own key is a no-op success; a key bound to anyone else is a
// hard rejection, never overridden.
func (b *Binder) Bind(ctx context.Context, acct Account, rawKey string) (*Binding, error) {
	key := NormalizeKey(rawKey)
	if !ValidKey(key) {
		b.record("malformed_key")
		return nil, ErrMalformedKey
	}

	l, err := b.store.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			b.record("not_found")
			return nil, ErrNotFound
		}
		b.record("persistence_error")
		return nil, ErrPersistence
	}

	if l.BoundAccountID != nil && *l.BoundAccountID != acct.ID {
		b.record("account_conflict")
		return nil, ErrAccountConflict
	}

	now := time.Now().UTC()
	if !now.Before(l.ExpiresAt) {
		b.record("expired")
		return nil, ErrExpired
	}
	if !l.IsActive {
		b.record("deactivated")
		return nil, ErrDeactivated
	}

	if err := b.store.BindAccount(ctx, l.ID, acct.ID, acct.Email, now); err != nil {
		log.Printf("license: bind failed for %s: %v", l.ID, err)
		b.record("persistence_error")
		return nil, ErrPersistence
	}

	if b.events != nil {
		b.events.LicenseBound(ctx, l.Key, acct.ID)
	}

	b.record("success")
	return &Binding{Key: l.Key, ExpiresAt: l.ExpiresAt}, nil
}

func (b *Binder) record(outcome string) {
	if b.metrics != nil {
		b.metrics.BindResult(outcome)
	}
}
