package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TempStore scopes the temporary copy of an upload for the duration of one
// pipeline run. Save returns an opaque reference that Remove accepts.
type TempStore interface {
	Save(ctx context.Context, originalName string, data []byte) (string, error)
	Remove(ctx context.Context, ref string) error
}

// LocalTempStore keeps uploads in a directory on local disk.
type LocalTempStore struct {
	dir string
}

// NewLocalTempStore creates the upload directory if it does not exist yet.
func NewLocalTempStore(dir string) (*LocalTempStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tempstore: create upload dir %q: %w", dir, err)
	}
	return &LocalTempStore{dir: dir}, nil
}

// Save writes the upload under a millisecond-timestamp prefix so concurrent
// uploads of the same file name cannot collide.
func (s *LocalTempStore) Save(_ context.Context, originalName string, data []byte) (string, error) {
	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filepath.Base(originalName))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("tempstore: write %q: %w", path, err)
	}
	return path, nil
}

func (s *LocalTempStore) Remove(_ context.Context, ref string) error {
	if err := os.Remove(ref); err != nil {
		return fmt.Errorf("tempstore: remove %q: %w", ref, err)
	}
	return nil
}
