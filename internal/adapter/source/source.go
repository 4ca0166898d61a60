// Package source opens the static car park dataset from a local file or an
// S3-compatible object store.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/carpark-etl/internal/config"
	"github.com/couchcryptid/carpark-etl/internal/domain"
)

const s3Scheme = "s3://"

// Opener opens one static dataset for reading. Callers close the reader.
type Opener interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Location describes where the dataset lives, for logs.
	Location() string
}

// New returns the opener for cfg.StaticSource: an S3 opener for s3://bucket/key
// locations and a file opener for anything else.
func New(ctx context.Context, cfg *config.Config) (Opener, error) {
	if !strings.HasPrefix(cfg.StaticSource, s3Scheme) {
		return FileOpener{Path: cfg.StaticSource}, nil
	}
	bucket, key, err := ParseS3Location(cfg.StaticSource)
	if err != nil {
		return nil, err
	}
	return NewS3Opener(ctx, S3Config{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
		Bucket:    bucket,
		Key:       key,
	})
}

// ParseS3Location splits s3://bucket/key into its parts.
func ParseS3Location(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location %q needs both bucket and key", location)
	}
	return bucket, key, nil
}

// FileOpener reads the dataset from the local filesystem.
type FileOpener struct {
	Path string
}

// Open opens the file. A path that cannot be opened as a regular file is
// domain.ErrNotFound.
func (o FileOpener) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(o.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrNotFound, o.Path)
	}
	return f, nil
}

// Location implements Opener.
func (o FileOpener) Location() string { return o.Path }
