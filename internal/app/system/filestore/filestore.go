// Package filestore keeps uploaded report PDFs on local disk or in an
// S3-compatible bucket.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// Config selects and configures the report storage backend.
type Config struct {
	Type string // "local" (default) or "s3"

	LocalPath string
	LocalURL  string

	S3Endpoint string // empty for AWS; MinIO/R2 URL otherwise
	S3Access   string
	S3Secret   string
	S3Bucket   string
	S3Region   string
}

// New builds the backend named by cfg.Type. Custom S3 endpoints use
// path-style addressing, which MinIO and R2 require.
func New(ctx context.Context, cfg Config) (storage.Store, error) {
	switch cfg.Type {
	case "s3":
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3Access,
			SecretAccessKey: cfg.S3Secret,
			Endpoint:        EndpointURL(cfg.S3Endpoint),
			UsePathStyle:    cfg.S3Endpoint != "",
		})
		if err != nil {
			return nil, fmt.Errorf("filestore: s3: %w", err)
		}
		return s3, nil
	case "local", "":
		if cfg.LocalPath == "" {
			return nil, errors.New("filestore: local path is empty")
		}
		local, err := storage.NewLocal(storage.LocalConfig{
			BasePath: cfg.LocalPath,
			BaseURL:  cfg.LocalURL,
		})
		if err != nil {
			return nil, fmt.Errorf("filestore: local: %w", err)
		}
		return local, nil
	default:
		return nil, fmt.Errorf("filestore: unknown storage type %q", cfg.Type)
	}
}

// EndpointURL adds https:// to a bare host[:port] endpoint.
func EndpointURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}

// NewKey returns a unique object key under prefix for an uploaded file:
// <prefix>/YYYY/MM/<uuid>-<clean filename>.
func NewKey(prefix, filename string, now time.Time) string {
	name := CleanFilename(filename)
	if name == "" {
		name = "file"
	}
	return path.Join(
		strings.Trim(prefix, "/"),
		fmt.Sprintf("%04d/%02d", now.Year(), now.Month()),
		uuid.NewString()+"-"+name,
	)
}

// CleanFilename drops any directory part and every byte outside
// [A-Za-z0-9._-]; spaces become underscores.
func CleanFilename(filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if filename == "." || filename == "/" {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('_')
		}
	}
	return strings.TrimLeft(b.String(), ".")
}

// ContentDisposition builds an attachment header value for filename.
func ContentDisposition(filename string) string {
	name := CleanFilename(filename)
	if name == "" {
		return "attachment"
	}
	return fmt.Sprintf(`attachment; filename="%s"`, name)
}
