package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
)

const validYAML = `
auth:
  callback_secret: "0123456789abcdef0123456789abcdef"
storage:
  cookie_secret: "fedcba9876543210fedcba9876543210"
backend:
  base_url: "https://verify.example.com"
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("Addr() = %q, want %q", cfg.Addr(), "0.0.0.0:8080")
	}
	if cfg.Storage.Driver != "cookie" {
		t.Fatalf("Storage.Driver = %q, want cookie", cfg.Storage.Driver)
	}
	if cfg.Server.MaxBodySize != datasize.MB {
		t.Fatalf("Server.MaxBodySize = %s, want 1MB", cfg.Server.MaxBodySize)
	}
	if cfg.Auth.LoginURL != "https://discord-auth.pages.dev" {
		t.Fatalf("Auth.LoginURL = %q", cfg.Auth.LoginURL)
	}
	if cfg.Backend.Stream == nil || !*cfg.Backend.Stream {
		t.Fatal("Backend.Stream default should be true")
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Fatalf("Backend.Timeout = %s, want 10s", cfg.Backend.Timeout)
	}
}

func TestParseReadsSizesAndDurations(t *testing.T) {
	data := `
auth:
  callback_secret: "0123456789abcdef0123456789abcdef"
backend:
  base_url: "https://verify.example.com"
server:
  max_body_size: 64KB
storage:
  driver: sqlite
  idle_ttl: 72h
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Server.MaxBodySize != 64*datasize.KB {
		t.Fatalf("Server.MaxBodySize = %s, want 64KB", cfg.Server.MaxBodySize)
	}
	if cfg.Storage.IdleTTL != 72*time.Hour {
		t.Fatalf("Storage.IdleTTL = %s, want 72h", cfg.Storage.IdleTTL)
	}
	if cfg.Storage.Path != "./data/portal.db" {
		t.Fatalf("Storage.Path = %q, want sqlite default", cfg.Storage.Path)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing_callback_secret",
			yaml:    "backend:\n  base_url: https://x.example\n",
			wantErr: "auth.callback_secret is required",
		},
		{
			name:    "short_callback_secret",
			yaml:    "auth:\n  callback_secret: short\n",
			wantErr: "at least 32 characters",
		},
		{
			name:    "missing_backend",
			yaml:    "auth:\n  callback_secret: \"0123456789abcdef0123456789abcdef\"\n",
			wantErr: "backend.base_url is required",
		},
		{
			name: "cookie_without_secret",
			yaml: "auth:\n  callback_secret: \"0123456789abcdef0123456789abcdef\"\n" +
				"backend:\n  base_url: https://x.example\n",
			wantErr: "storage.cookie_secret",
		},
		{
			name: "unknown_driver",
			yaml: "auth:\n  callback_secret: \"0123456789abcdef0123456789abcdef\"\n" +
				"backend:\n  base_url: https://x.example\nstorage:\n  driver: etcd\n",
			wantErr: `storage.driver "etcd"`,
		},
		{
			name: "redis_without_addr",
			yaml: "auth:\n  callback_secret: \"0123456789abcdef0123456789abcdef\"\n" +
				"backend:\n  base_url: https://x.example\nstorage:\n  driver: redis\n",
			wantErr: "storage.redis.addr is required",
		},
		{
			name: "negative_idle_ttl",
			yaml: "auth:\n  callback_secret: \"0123456789abcdef0123456789abcdef\"\n" +
				"backend:\n  base_url: https://x.example\nstorage:\n  driver: sqlite\n  idle_ttl: -24h\n",
			wantErr: "storage.idle_ttl must not be negative",
		},
		{
			name: "negative_janitor_interval",
			yaml: "auth:\n  callback_secret: \"0123456789abcdef0123456789abcdef\"\n" +
				"backend:\n  base_url: https://x.example\nstorage:\n  driver: sqlite\n  janitor_interval: -1m\n",
			wantErr: "storage.janitor_interval must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: bolt\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("PORTAL_CALLBACK_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PORTAL_BACKEND_URL", "https://env.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend.BaseURL != "https://env.example.com" {
		t.Fatalf("Backend.BaseURL = %q, want env override", cfg.Backend.BaseURL)
	}
	if cfg.Storage.Path != "./data/portal.bolt" {
		t.Fatalf("Storage.Path = %q, want bolt default", cfg.Storage.Path)
	}
}
