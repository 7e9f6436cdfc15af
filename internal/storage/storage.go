// ===============================
// internal/storage/storage.go - Artifact Storage
// ===============================

package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Storage areas. Trimmed media and thumbnails live side by side but never share a prefix.
const (
	AreaMedia      = "media"
	AreaThumbnails = "thumbnails"
)

// ErrInvalidKey is returned for keys outside the known areas.
var ErrInvalidKey = errors.New("invalid artifact key")

// Location tells a reader where an artifact can be fetched from.
type Location struct {
	LocalPath string // set by filesystem stores
	URL       string // set by object stores
}

// Store persists ingestion artifacts under stable keys.
type Store interface {
	Put(ctx context.Context, key, localPath, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Locate(ctx context.Context, key string) (Location, error)
	Backend() string
}

// MediaKey is the storage key for a trimmed clip.
func MediaKey(storageID string) string {
	return path.Join(AreaMedia, storageID+".mp4")
}

// ThumbnailKey is the storage key for a clip's still frame.
func ThumbnailKey(storageID string) string {
	return path.Join(AreaThumbnails, storageID+".jpg")
}

// ValidateKey rejects keys that escape their area.
func ValidateKey(key string) error {
	clean := path.Clean(key)
	if clean != key || strings.HasPrefix(clean, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	area, name, ok := strings.Cut(clean, "/")
	if !ok || name == "" || strings.Contains(name, "/") || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if area != AreaMedia && area != AreaThumbnails {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// ContentType guesses a MIME type from the key extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
