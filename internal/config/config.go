package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reelacademy/ra-lms/internal/ratelimit"
)

// Duration lets YAML carry "10s"-style values; yaml.v3 has no native
// time.Duration decoding.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`

	NATS struct {
		URL             string `yaml:"url"`
		PublishRetryMax int    `yaml:"publish_retry_max"`
	} `yaml:"nats"`

	DRM struct {
		APIBase    string   `yaml:"api_base"`
		APISecret  string   `yaml:"api_secret"`
		PlayerHost string   `yaml:"player_host"`
		Timeout    Duration `yaml:"timeout"`
	} `yaml:"drm"`

	Auth struct {
		JWTSigningKey     string `yaml:"jwt_signing_key"`
		AdminUsername     string `yaml:"admin_username"`
		AdminPasswordHash string `yaml:"admin_password_hash"`
	} `yaml:"auth"`

	RateLimit struct {
		Salt      string                           `yaml:"salt"`
		Endpoints map[string]ratelimit.LimitConfig `yaml:"endpoints"`
	} `yaml:"rate_limit"`
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.SSLMode)
}

// Load reads the YAML file and applies env overrides for secrets so they
// never have to live in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = "5432"
	cfg.Database.SSLMode = "disable"
	cfg.Redis.Addr = "localhost:6379"
	cfg.NATS.PublishRetryMax = 3
	cfg.DRM.APIBase = "https://dev.vdocipher.com/api"
	cfg.DRM.PlayerHost = "player.vdocipher.com"
	cfg.DRM.Timeout = Duration(10 * time.Second)
	return cfg
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"DB_HOST":             &cfg.Database.Host,
		"DB_PORT":             &cfg.Database.Port,
		"DB_USER":             &cfg.Database.User,
		"DB_PASSWORD":         &cfg.Database.Password,
		"DB_NAME":             &cfg.Database.Name,
		"DB_SSLMODE":          &cfg.Database.SSLMode,
		"REDIS_ADDR":          &cfg.Redis.Addr,
		"REDIS_PASSWORD":      &cfg.Redis.Password,
		"NATS_URL":            &cfg.NATS.URL,
		"DRM_API_SECRET":      &cfg.DRM.APISecret,
		"JWT_SIGNING_KEY":     &cfg.Auth.JWTSigningKey,
		"ADMIN_USERNAME":      &cfg.Auth.AdminUsername,
		"ADMIN_PASSWORD_HASH": &cfg.Auth.AdminPasswordHash,
	}
	for env, dst := range overrides {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// Manager holds the live config behind a lock so the watcher can swap the
// reloadable sections (rate limits today) without a restart.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  *Config
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cfg: cfg}, nil
}

func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// EndpointLimit returns the live rate limit for a route, zero-valued if
// unconfigured.
func (m *Manager) EndpointLimit(route string) ratelimit.LimitConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.RateLimit.Endpoints[route]
}

// Reload re-reads the file. Connection-level settings (DB, Redis, NATS,
// server addr) are intentionally not picked up live; only the sections the
// middleware reads per-request. The swap publishes a fresh *Config so a
// snapshot handed out by Current is never written to.
func (m *Manager) Reload() error {
	cfg, err := Load(m.path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	fresh := *m.cfg
	fresh.RateLimit = cfg.RateLimit
	m.cfg = &fresh
	m.mu.Unlock()
	return nil
}
