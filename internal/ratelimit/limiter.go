package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrRedisUnavailable  = errors.New("redis unavailable")
)

type Scope string

const (
	// ScopeIP throttles by caller address; the brute-force guard on key
	// guessing at validate/bind.
	ScopeIP Scope = "ip"
	// ScopeEndpoint throttles a whole route, e.g. OTP issuance.
	ScopeEndpoint Scope = "endpoint"
)

type Decision struct {
	Scope      Scope
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter int // seconds
	Allowed    bool
}

type LimitConfig struct {
	Rate   int           `yaml:"rate"`
	Window time.Duration `yaml:"window"`
}

// UnmarshalYAML accepts "1m"-style windows; yaml.v3 has no native
// time.Duration decoding.
func (c *LimitConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Rate   int    `yaml:"rate"`
		Window string `yaml:"window"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Rate = raw.Rate
	if raw.Window != "" {
		d, err := time.ParseDuration(raw.Window)
		if err != nil {
			return fmt.Errorf("invalid rate limit window %q: %w", raw.Window, err)
		}
		c.Window = d
	}
	return nil
}

type Limiter struct {
	client *redis.Client
	salt   string // for IP hashing stability
}

func NewLimiter(client *redis.Client, salt string) *Limiter {
	if salt == "" {
		salt = "default-salt-change-me"
	}
	return &Limiter{client: client, salt: salt}
}

// HashIP creates a privacy-safe hash of the IP
func (l *Limiter) HashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip + l.salt))
	return hex.EncodeToString(hash[:])
}

// Atomic INCR, setting expiry only on the first hit of the window.
var windowScript = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if tonumber(current) == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	return current
`)

// Check counts a hit against a fixed window rooted at the first request.
// Reset/RetryAfter are upper-bound estimates; exact values would cost a TTL
// round trip per request.
func (l *Limiter) Check(ctx context.Context, scope Scope, id string, config LimitConfig) (*Decision, error) {
	key := fmt.Sprintf("rl:%s:%s", scope, id)

	count, err := windowScript.Run(ctx, l.client, []string{key}, config.Window.Milliseconds()).Int()
	if err != nil {
		return nil, ErrRedisUnavailable
	}

	remaining := config.Rate - count
	if remaining < 0 {
		remaining = 0
	}

	return &Decision{
		Scope:      scope,
		Limit:      config.Rate,
		Remaining:  remaining,
		Reset:      time.Now().Add(config.Window),
		RetryAfter: int(config.Window.Seconds()),
		Allowed:    count <= config.Rate,
	}, nil
}
