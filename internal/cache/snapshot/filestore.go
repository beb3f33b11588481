package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohammed-shakir/gridsight/internal/core/observability"
)

const snapshotSuffix = ".snapshot.json"

type FileStore struct {
	path     string
	maxBytes int64
}

type FileOption func(*FileStore)

func WithMaxBytes(n int64) FileOption {
	return func(s *FileStore) { s.maxBytes = n }
}

func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	s := &FileStore{path: path, maxBytes: 4 << 20}
	for _, f := range opts {
		f(s)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("snapshot dir: %w", err)
		}
	}
	return s, nil
}

func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.path)
	observability.ObserveSnapshotOp("load", err)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("snapshot read %q: %w", s.path, err)
	}
	return b, nil
}

// Save writes atomically via a temp file and rename. Blobs over the byte
// quota are rejected with ErrQuota before touching disk.
func (s *FileStore) Save(_ context.Context, blob []byte) error {
	if s.maxBytes > 0 && int64(len(blob)) > s.maxBytes {
		observability.ObserveSnapshotOp("save", ErrQuota)
		return ErrQuota
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		observability.ObserveSnapshotOp("save", err)
		return fmt.Errorf("snapshot write %q: %w", tmp, err)
	}
	err := os.Rename(tmp, s.path)
	observability.ObserveSnapshotOp("save", err)
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("snapshot rename: %w", err)
	}
	return nil
}

// Prune drops sibling snapshot files and stray temp files in the snapshot
// directory, keeping only the live snapshot.
func (s *FileStore) Prune(_ context.Context) error {
	dir := filepath.Dir(s.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		observability.ObserveSnapshotOp("prune", err)
		return fmt.Errorf("snapshot prune readdir: %w", err)
	}
	var first error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		full := filepath.Join(dir, name)
		if full == s.path {
			continue
		}
		if strings.HasSuffix(name, snapshotSuffix) || strings.HasSuffix(name, ".tmp") {
			if err := os.Remove(full); err != nil && first == nil {
				first = err
			}
		}
	}
	observability.ObserveSnapshotOp("prune", first)
	if first != nil {
		return fmt.Errorf("snapshot prune: %w", first)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
