package storage

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultJanitorInterval = 1 * time.Hour
)

// IdleDeleter is implemented by backends that track write times.
type IdleDeleter interface {
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}

// Janitor drops slots of browsers that have not written for maxIdle.
type Janitor struct {
	target   IdleDeleter
	maxIdle  time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewJanitor(target IdleDeleter, maxIdle, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{
		target:   target,
		maxIdle:  maxIdle,
		interval: interval,
		now:      time.Now,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	slog.Info("starting storage janitor", "component", "janitor", "interval", j.interval, "max_idle", j.maxIdle)

	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping storage janitor", "component", "janitor")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *Janitor) RunOnce(ctx context.Context) {
	deleted, err := j.target.DeleteIdle(ctx, j.now().Add(-j.maxIdle))
	if err != nil {
		slog.Error("error deleting idle storage items", "component", "janitor", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("deleted idle storage items", "component", "janitor", "count", deleted)
	}
}
