package storage

import (
	"context"

	"portal/internal/login"
)

type prefixed struct {
	storage login.Storage
	prefix  string
}

// WithPrefix scopes every key of s under prefix, giving each browser its
// own slot in a shared backend.
func WithPrefix(s login.Storage, prefix string) login.Storage {
	return &prefixed{storage: s, prefix: prefix}
}

func (p *prefixed) GetItem(ctx context.Context, key string) (string, bool, error) {
	return p.storage.GetItem(ctx, p.prefix+key)
}

func (p *prefixed) SetItem(ctx context.Context, key, value string) error {
	return p.storage.SetItem(ctx, p.prefix+key, value)
}

func (p *prefixed) RemoveItem(ctx context.Context, key string) error {
	return p.storage.RemoveItem(ctx, p.prefix+key)
}
