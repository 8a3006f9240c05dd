// Package session keeps the server-side mirror of the client's ephemeral
// license session: one Redis hash per session id, gone on logout or expiry.
// The client itself only ever holds (key, expiresAt) inside its token.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxTTL caps session lifetime regardless of license expiry. A browsing
// session should not outlive a day without re-entering through the binder.
const MaxTTL = 24 * time.Hour

var ErrNotFound = errors.New("session not found")

type Session struct {
	LicenseKey string
	ExpiresAt  time.Time
}

type Manager struct {
	client *redis.Client
}

// NewManager wraps a shared Redis client. The client is constructed once at
// process start and passed by reference; the manager never owns it.
func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create registers a session for a bound license. TTL runs to the license
// expiry, capped at MaxTTL.
func (m *Manager) Create(ctx context.Context, id string, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	key := sessionKey(id)
	pipe := m.client.Pipeline()
	pipe.HSet(ctx, key,
		"license_key", s.LicenseKey,
		"expires_at", s.ExpiresAt.UTC().Format(time.RFC3339),
	)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	vals, err := m.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}

	expiresAt, err := time.Parse(time.RFC3339, vals["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &Session{
		LicenseKey: vals["license_key"],
		ExpiresAt:  expiresAt,
	}, nil
}

// Revoke removes a session on explicit logout. Idempotent.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	return m.client.Del(ctx, sessionKey(id)).Err()
}
