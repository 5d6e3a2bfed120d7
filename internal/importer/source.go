// Package importer turns statement files into ledger import rows.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// Source reads a statement file by location.
type Source interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FileSource reads local paths.
type FileSource struct{}

func (FileSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading %q: %w", location, err)
	}
	return data, nil
}

// GCSSource reads gs://bucket/object URIs.
type GCSSource struct {
	client *storage.Client
}

func NewGCSSource(client *storage.Client) *GCSSource {
	return &GCSSource{client: client}
}

func (s *GCSSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(location)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Archive uploads a statement to bucket under object.
func (s *GCSSource) Archive(ctx context.Context, bucket, object string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("Archive: writing %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Archive: finalizing upload: %w", err)
	}
	return nil
}

// RoutingSource sends gs:// locations to GCS and everything else to disk.
// GCS may be nil when no storage client is configured.
type RoutingSource struct {
	Local Source
	GCS   Source
}

func (r RoutingSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	if IsGCSURI(location) {
		if r.GCS == nil {
			return nil, fmt.Errorf("Fetch: %s: no storage client configured", location)
		}
		return r.GCS.Fetch(ctx, location)
	}
	local := r.Local
	if local == nil {
		local = FileSource{}
	}
	return local.Fetch(ctx, location)
}

func IsGCSURI(location string) bool {
	return strings.HasPrefix(location, gcsScheme)
}

// ParseGCSURI splits gs://bucket/path/to/file into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FileName returns the base name of a local path or GCS URI.
// e.g., "gs://bucket/folder/file.csv" → "file.csv"
func FileName(location string) string {
	if IsGCSURI(location) {
		if _, object, err := ParseGCSURI(location); err == nil {
			return path.Base(object)
		}
		return strings.TrimPrefix(location, gcsScheme)
	}
	return filepath.Base(location)
}

// FileFormat is the lowercased extension without the dot.
func FileFormat(location string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(FileName(location)), "."))
}
