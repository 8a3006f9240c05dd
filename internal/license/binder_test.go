package license_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelacademy/ra-lms/internal/data"
	"github.com/reelacademy/ra-lms/internal/license"
)

type MockEventSink struct {
	BoundKey     string
	BoundAccount string
}

func (m *MockEventSink) LicenseBound(ctx context.Context, key, accountID string) {
	m.BoundKey = key
	m.BoundAccount = accountID
}

func TestFindBinding_None(t *testing.T) {
	store := NewMockStore(nil)
	store.GetErr = data.ErrRecordNotFound
	b := license.NewBinder(store, nil, nil)

	binding, err := b.FindBinding(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("No binding should not be an error, got %v", err)
	}
	if binding != nil {
		t.Error("Expected nil binding")
	}
}

func TestFindBinding_FastPath(t *testing.T) {
	l := activeLicense()
	l.BoundAccountID = strPtr("acct-1")
	store := NewMockStore(l)
	b := license.NewBinder(store, nil, nil)

	binding, err := b.FindBinding(context.Background(), "acct-1")
	if err != nil {
		t.Fatal(err)
	}
	if binding.Key != testKey {
		t.Errorf("Expected key %s, got %s", testKey, binding.Key)
	}
}

func TestFindBinding_BoundButExpired(t *testing.T) {
	l := activeLicense()
	l.BoundAccountID = strPtr("acct-1")
	l.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	store := NewMockStore(l)
	b := license.NewBinder(store, nil, nil)

	_, err := b.FindBinding(context.Background(), "acct-1")
	if !errors.Is(err, license.ErrExpired) {
		t.Errorf("Expected ErrExpired, got %v", err)
	}
}

func TestBind_FirstRedemption(t *testing.T) {
	store := NewMockStore(activeLicense())
	sink := &MockEventSink{}
	b := license.NewBinder(store, sink, nil)

	acct := license.Account{ID: "acct-1", Email: "jane@example.com"}
	binding, err := b.Bind(context.Background(), acct, " ab12-cd34-ef56-gh78 ")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if binding.Key != testKey {
		t.Errorf("Expected normalized key, got %s", binding.Key)
	}
	if store.Calls["BindAccount"] != 1 {
		t.Error("Expected BindAccount call")
	}
	if sink.BoundKey != testKey || sink.BoundAccount != "acct-1" {
		t.Error("Bind event not published")
	}
}

func TestBind_IdempotentRebind(t *testing.T) {
	l := activeLicense()
	l.BoundAccountID = strPtr("acct-1")
	store := NewMockStore(l)
	b := license.NewBinder(store, nil, nil)

	_, err := b.Bind(context.Background(), license.Account{ID: "acct-1"}, testKey)
	if err != nil {
		t.Fatalf("Rebinding own key should succeed, got %v", err)
	}
}

func TestBind_AccountConflict(t *testing.T) {
	l := activeLicense()
	l.BoundAccountID = strPtr("acct-1")
	store := NewMockStore(l)
	b := license.NewBinder(store, nil, nil)

	_, err := b.Bind(context.Background(), license.Account{ID: "acct-2"}, testKey)
	if !errors.Is(err, license.ErrAccountConflict) {
		t.Errorf("Expected ErrAccountConflict, got %v", err)
	}
	if store.Calls["BindAccount"] != 0 {
		t.Error("Conflict must not rebind")
	}
	if *store.License.BoundAccountID != "acct-1" {
		t.Error("Original binding must survive a conflict")
	}
}

func TestBind_MalformedKey(t *testing.T) {
	store := NewMockStore(nil)
	b := license.NewBinder(store, nil, nil)

	_, err := b.Bind(context.Background(), license.Account{ID: "acct-1"}, "AB12CD34EF56GH78")
	if !errors.Is(err, license.ErrMalformedKey) {
		t.Errorf("Expected ErrMalformedKey, got %v", err)
	}
	if store.Calls["GetByKey"] != 0 {
		t.Error("Malformed key must not reach the store")
	}
}

func TestBind_UnknownKey(t *testing.T) {
	store := NewMockStore(nil)
	store.GetErr = data.ErrRecordNotFound
	b := license.NewBinder(store, nil, nil)

	_, err := b.Bind(context.Background(), license.Account{ID: "acct-1"}, testKey)
	if !errors.Is(err, license.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBind_Expired(t *testing.T) {
	l := activeLicense()
	l.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	store := NewMockStore(l)
	b := license.NewBinder(store, nil, nil)

	_, err := b.Bind(context.Background(), license.Account{ID: "acct-1"}, testKey)
	if !errors.Is(err, license.ErrExpired) {
		t.Errorf("Expected ErrExpired, got %v", err)
	}
}

func TestBind_Deactivated(t *testing.T) {
	l := activeLicense()
	l.IsActive = false
	store := NewMockStore(l)
	b := license.NewBinder(store, nil, nil)

	_, err := b.Bind(context.Background(), license.Account{ID: "acct-1"}, testKey)
	if !errors.Is(err, license.ErrDeactivated) {
		t.Errorf("Expected ErrDeactivated, got %v", err)
	}
}

func TestBind_StoreFailure(t *testing.T) {
	store := NewMockStore(activeLicense())
	store.BindErr = errors.New("connection reset")
	b := license.NewBinder(store, nil, nil)

	_, err := b.Bind(context.Background(), license.Account{ID: "acct-1"}, testKey)
	if !errors.Is(err, license.ErrPersistence) {
		t.Errorf("Expected ErrPersistence, got %v", err)
	}
}
