package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidS3URI is returned for s3:// paths without a bucket
var ErrInvalidS3URI = errors.New("invalid S3 URI")

// Storage is the backend that output files are written to and input files
// are read from. Supports both local filesystem and S3.
type Storage interface {
	// ReadFile reads a file relative to the base path
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile writes a file relative to the base path
	WriteFile(ctx context.Context, path string, data []byte) error

	// Exists checks if a file exists
	Exists(ctx context.Context, path string) (bool, error)

	// GetBasePath returns the base path
	GetBasePath() string

	// IsS3 returns true if this is S3 storage
	IsS3() bool
}

// LocalStorage implements Storage for local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage backend
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.basePath, path))
}

func (s *LocalStorage) WriteFile(_ context.Context, path string, data []byte) error {
	fullPath := filepath.Join(s.basePath, path)
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

func (s *LocalStorage) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStorage) GetBasePath() string {
	return s.basePath
}

func (s *LocalStorage) IsS3() bool {
	return false
}

// IsS3URI checks if a path is an S3 URI
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// NewStorage creates the appropriate storage backend based on path
func NewStorage(ctx context.Context, path, region string) (Storage, error) {
	if IsS3URI(path) {
		return NewS3Storage(ctx, path, region)
	}
	return NewLocalStorage(path), nil
}

// Join builds the display path of name inside base. S3 keys always use '/'.
func Join(base, name string) string {
	if IsS3URI(base) {
		return strings.TrimSuffix(base, "/") + "/" + name
	}
	return filepath.Join(base, name)
}

// Dir returns the directory part of path, or "." when there is none.
// For S3 URIs the bucket root is the smallest directory.
func Dir(path string) string {
	if IsS3URI(path) {
		i := strings.LastIndex(path, "/")
		if i < len("s3://") {
			return path
		}
		return path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "" {
		return "."
	}
	return dir
}

// Open opens a local path or s3:// URI for reading. Compressed inputs are
// decompressed on the fly, see NewDecompressor.
func Open(ctx context.Context, path, region string) (io.ReadCloser, error) {
	var raw io.ReadCloser
	if IsS3URI(path) {
		uri, err := ParseS3URI(path)
		if err != nil {
			return nil, err
		}
		s, err := NewS3Storage(ctx, "s3://"+uri.Bucket, region)
		if err != nil {
			return nil, err
		}
		data, err := s.ReadFile(ctx, uri.Prefix)
		if err != nil {
			return nil, err
		}
		raw = io.NopCloser(bytes.NewReader(data))
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		raw = f
	}

	rc, err := NewDecompressor(raw, path)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return rc, nil
}
