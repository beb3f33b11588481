// Package snapshot persists the response cache as a single versioned blob,
// mirroring the durable-storage contract the cache expects: load on start,
// save on every mutation, prune as a last resort when writes keep failing.
package snapshot

import (
	"context"
	"errors"
)

// ErrQuota is returned by Save when the blob exceeds the store's capacity.
// Callers are expected to evict aggressively and retry once.
var ErrQuota = errors.New("snapshot: quota exceeded")

// ErrNotFound is returned by Load when no snapshot exists yet.
var ErrNotFound = errors.New("snapshot: not found")

type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	// Prune removes anything the store holds beyond the snapshot itself.
	Prune(ctx context.Context) error
	Close() error
}

// Noop discards every write. Used when persistence is disabled.
type Noop struct{}

func (Noop) Load(context.Context) ([]byte, error) { return nil, ErrNotFound }
func (Noop) Save(context.Context, []byte) error   { return nil }
func (Noop) Prune(context.Context) error          { return nil }
func (Noop) Close() error                         { return nil }

