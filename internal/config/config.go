package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Name           string            `yaml:"name"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	BaseURL        string            `yaml:"base_url"`
	TrustedProxies []string          `yaml:"trusted_proxies"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	MaxBodySize    datasize.ByteSize `yaml:"max_body_size"`
}

type AuthConfig struct {
	LoginURL        string        `yaml:"login_url"`        // auth redirect service entry point
	CallbackSecret  string        `yaml:"callback_secret"`  // HS256 secret shared with the auth redirect service
	Issuer          string        `yaml:"issuer"`           // expected iss of hand-off tokens
	HandoffTTL      time.Duration `yaml:"handoff_ttl"`      // lifetime of tokens signed by portalctl
	DefaultRedirect string        `yaml:"default_redirect"` // where the callback lands without ?to=
}

type StorageConfig struct {
	Driver          string        `yaml:"driver"`
	Path            string        `yaml:"path"`
	CookieSecret    string        `yaml:"cookie_secret"`
	CookieMaxAge    time.Duration `yaml:"cookie_max_age"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	DeviceCookie    string        `yaml:"device_cookie"`
	IdleTTL         time.Duration `yaml:"idle_ttl"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	Redis           RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Stream  *bool         `yaml:"stream"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORTAL_CALLBACK_SECRET"); v != "" {
		c.Auth.CallbackSecret = v
	}
	if v := os.Getenv("PORTAL_COOKIE_SECRET"); v != "" {
		c.Storage.CookieSecret = v
	}
	if v := os.Getenv("PORTAL_REDIS_PASSWORD"); v != "" {
		c.Storage.Redis.Password = v
	}
	if v := os.Getenv("PORTAL_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
}

func (c *Config) validate() error {
	if c.Auth.CallbackSecret == "" {
		return fmt.Errorf("auth.callback_secret is required")
	}
	if len(c.Auth.CallbackSecret) < 32 {
		return fmt.Errorf("auth.callback_secret must be at least 32 characters")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL")
	}

	// Zero means "use the default"; a negative idle_ttl would make the
	// janitor treat every slot as idle.
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"auth.handoff_ttl", c.Auth.HandoffTTL},
		{"storage.cookie_max_age", c.Storage.CookieMaxAge},
		{"storage.idle_ttl", c.Storage.IdleTTL},
		{"storage.janitor_interval", c.Storage.JanitorInterval},
		{"backend.timeout", c.Backend.Timeout},
	} {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}

	switch c.Storage.Driver {
	case "", "cookie":
		if len(c.Storage.CookieSecret) < 32 {
			return fmt.Errorf("storage.cookie_secret must be at least 32 characters")
		}
	case "file", "bolt", "sqlite":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of cookie, file, bolt, sqlite, redis", c.Storage.Driver)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "Verification Portal"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Server.MaxBodySize == 0 {
		c.Server.MaxBodySize = 1 * datasize.MB
	}
	if c.Auth.LoginURL == "" {
		c.Auth.LoginURL = "https://discord-auth.pages.dev"
	}
	if c.Auth.HandoffTTL == 0 {
		c.Auth.HandoffTTL = 5 * time.Minute
	}
	if c.Auth.DefaultRedirect == "" {
		c.Auth.DefaultRedirect = "/portal"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "cookie"
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case "file":
			c.Storage.Path = "./data/slots"
		case "bolt":
			c.Storage.Path = "./data/portal.bolt"
		case "sqlite":
			c.Storage.Path = "./data/portal.db"
		}
	}
	if c.Storage.CookieMaxAge == 0 {
		c.Storage.CookieMaxAge = 30 * 24 * time.Hour
	}
	if c.Storage.DeviceCookie == "" {
		c.Storage.DeviceCookie = "portal_device"
	}
	if c.Storage.IdleTTL == 0 {
		c.Storage.IdleTTL = 30 * 24 * time.Hour
	}
	if c.Storage.JanitorInterval == 0 {
		c.Storage.JanitorInterval = time.Hour
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "portal:"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Backend.Stream == nil {
		stream := true
		c.Backend.Stream = &stream
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "portal"
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
