package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCSTempStore keeps uploads in a Google Cloud Storage bucket instead of
// local disk, for deployments without a writable filesystem. It assumes
// Application Default Credentials are configured.
type GCSTempStore struct {
	bucket string
}

func NewGCSTempStore(bucket string) *GCSTempStore {
	return &GCSTempStore{bucket: bucket}
}

// Save uploads the bytes under a dated, uuid-prefixed object name and returns
// the gs:// URI.
func (s *GCSTempStore) Save(ctx context.Context, originalName string, data []byte) (string, error) {
	objectName := fmt.Sprintf("uploads/%s/%s", time.Now().Format("2006/01/02"),
		uuid.NewString()+"-"+filepath.Base(originalName))

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("gcstemp: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcstemp: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcstemp: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// Remove deletes the object behind a gs:// URI produced by Save.
func (s *GCSTempStore) Remove(ctx context.Context, ref string) error {
	trimmed := strings.TrimPrefix(ref, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("gcstemp: invalid GCS URI: %s", ref)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("gcstemp: create storage client: %w", err)
	}
	defer client.Close()

	if err := client.Bucket(parts[0]).Object(parts[1]).Delete(ctx); err != nil {
		return fmt.Errorf("gcstemp: delete object %s: %w", ref, err)
	}
	return nil
}
