package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portal/internal/login"
)

const (
	DriverCookie = "cookie"
	DriverFile   = "file"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Backend is a shared storage that owns resources.
type Backend interface {
	login.Storage
	Close() error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Driver string
	// Path is a directory for the file driver and a database file for bolt
	// and sqlite.
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	RedisTTL      time.Duration
}

// Open returns the shared backend for opts.Driver. The cookie driver has no
// shared backend and is rejected.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverFile:
		return OpenFile(opts.Path)
	case DriverBolt:
		return OpenBolt(opts.Path)
	case DriverSQLite:
		return OpenSQLite(ctx, opts.Path)
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		s := NewRedis(client, opts.RedisPrefix, opts.RedisTTL)
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage driver %q has no shared backend", opts.Driver)
	}
}
