package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// LocalStore keeps artifacts on the local filesystem under root/{media,thumbnails}.
type LocalStore struct {
	root string
}

// NewLocalStore creates the area directories under root.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, area := range []string{AreaMedia, AreaThumbnails} {
		if err := os.MkdirAll(filepath.Join(abs, area), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s area: %w", area, err)
		}
	}
	return &LocalStore{root: abs}, nil
}

// Backend implements Store.
func (s *LocalStore) Backend() string { return "local" }

func (s *LocalStore) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put copies localPath into the store; readers never observe a half-written artifact.
func (s *LocalStore) Put(_ context.Context, key, localPath, _ string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	pending, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("failed to stage artifact: %w", err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, src); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to commit artifact: %w", err)
	}
	return nil
}

// Delete removes an artifact; deleting a missing key is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists implements Store.
func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Locate implements Store.
func (s *LocalStore) Locate(_ context.Context, key string) (Location, error) {
	p, err := s.path(key)
	if err != nil {
		return Location{}, err
	}
	return Location{LocalPath: p}, nil
}
