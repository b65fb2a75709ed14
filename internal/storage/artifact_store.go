package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrArtifactNotFound is returned when a stored artifact does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrInvalidArtifactName is returned for empty names or names containing path elements.
	ErrInvalidArtifactName = errors.New("invalid artifact name")
)

// ArtifactStore persists encoded output images by name
type ArtifactStore interface {
	// Save stores data and returns a backend-specific location.
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Open returns the stored bytes and their size, or -1 when unknown.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
}

// ValidateArtifactName rejects names that could escape the store.
func ValidateArtifactName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") ||
		filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}
	return nil
}

// LocalArtifactStore writes artifacts into a directory on disk
type LocalArtifactStore struct {
	dir string
}

// NewLocalArtifactStore creates dir if needed
func NewLocalArtifactStore(dir string) (*LocalArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &LocalArtifactStore{dir: dir}, nil
}

func (s *LocalArtifactStore) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	if err := ValidateArtifactName(name); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	target := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}
	return target, nil
}

func (s *LocalArtifactStore) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	if err := ValidateArtifactName(name); err != nil {
		return nil, 0, err
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}
