package session_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/reelacademy/ra-lms/internal/session"
)

func newManager(t *testing.T) (*session.Manager, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return session.NewManager(rdb), mr
}

func TestSession_CreateGet(t *testing.T) {
	mgr, _ := newManager(t)

	expires := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	err := mgr.Create(context.Background(), "sess-1", session.Session{
		LicenseKey: "AB12-CD34-EF56-GH78",
		ExpiresAt:  expires,
	})
	if err != nil {
		t.Fatal(err)
	}

	s, err := mgr.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if s.LicenseKey != "AB12-CD34-EF56-GH78" {
		t.Errorf("Expected license key on round trip, got %q", s.LicenseKey)
	}
	if !s.ExpiresAt.Equal(expires) {
		t.Errorf("Expected expiry %v, got %v", expires, s.ExpiresAt)
	}
}

func TestSession_StoresOnlyKeyAndExpiry(t *testing.T) {
	mgr, mr := newManager(t)

	err := mgr.Create(context.Background(), "sess-1", session.Session{
		LicenseKey: "AB12-CD34-EF56-GH78",
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	fields, err := mr.HKeys("session:sess-1")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(fields)
	want := []string{"expires_at", "license_key"}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("Expected fields %v, got %v", want, fields)
	}
}

func TestSession_GetMissing(t *testing.T) {
	mgr, _ := newManager(t)

	_, err := mgr.Get(context.Background(), "nope")
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSession_TTLCappedAtMax(t *testing.T) {
	mgr, mr := newManager(t)

	// License runs another year; the session must not.
	err := mgr.Create(context.Background(), "sess-1", session.Session{
		LicenseKey: "AB12-CD34-EF56-GH78",
		ExpiresAt:  time.Now().UTC().Add(365 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	ttl := mr.TTL("session:sess-1")
	if ttl <= 0 || ttl > session.MaxTTL {
		t.Errorf("Expected TTL capped at %v, got %v", session.MaxTTL, ttl)
	}
}

func TestSession_TTLTracksLicenseExpiry(t *testing.T) {
	mgr, mr := newManager(t)

	err := mgr.Create(context.Background(), "sess-1", session.Session{
		LicenseKey: "AB12-CD34-EF56-GH78",
		ExpiresAt:  time.Now().UTC().Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	ttl := mr.TTL("session:sess-1")
	if ttl <= 0 || ttl > 30*time.Minute {
		t.Errorf("Expected TTL at most 30m, got %v", ttl)
	}
}

func TestSession_CreateExpiredLicense(t *testing.T) {
	mgr, _ := newManager(t)

	err := mgr.Create(context.Background(), "sess-1", session.Session{
		LicenseKey: "AB12-CD34-EF56-GH78",
		ExpiresAt:  time.Now().UTC().Add(-time.Minute),
	})
	if err == nil {
		t.Error("Creating a session for an expired license must fail")
	}
}

func TestSession_Revoke(t *testing.T) {
	mgr, _ := newManager(t)

	_ = mgr.Create(context.Background(), "sess-1", session.Session{
		LicenseKey: "AB12-CD34-EF56-GH78",
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	})
	if err := mgr.Revoke(context.Background(), "sess-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Get(context.Background(), "sess-1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after revoke, got %v", err)
	}

	// Revoking again is a no-op.
	if err := mgr.Revoke(context.Background(), "sess-1"); err != nil {
		t.Fatal(err)
	}
}
