package models

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogEmpty is returned by playback when there is nothing to show.
	ErrCatalogEmpty = errors.New("catalog is empty")
	// ErrIngestBusy is returned when the ingestion pipeline is already at capacity.
	ErrIngestBusy = errors.New("ingestion already in progress")
	// ErrUnauthorized is returned for rejected admin credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// MediaProcessingError reports a transcode or thumbnail decode failure.
type MediaProcessingError struct {
	Op   string
	Path string
	Err  error
}

func (e *MediaProcessingError) Error() string {
	return fmt.Sprintf("media %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *MediaProcessingError) Unwrap() error { return e.Err }

// NotFoundError reports a catalog lookup miss.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("episode %d not found", e.ID)
}

// DuplicateTitleError is returned when the title policy rejects a collision.
type DuplicateTitleError struct {
	Title string
}

func (e *DuplicateTitleError) Error() string {
	return fmt.Sprintf("episode title %q already exists", e.Title)
}

// StorageFault reports a catalog or artifact write failure.
type StorageFault struct {
	Op  string
	Err error
}

func (e *StorageFault) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageFault) Unwrap() error { return e.Err }

// Artifact kinds
const (
	ArtifactMedia     = "media"
	ArtifactThumbnail = "thumbnail"
)

// MissingArtifactError reports a catalog row whose artifact no longer resolves.
type MissingArtifactError struct {
	EpisodeID int64
	Kind      string
	Path      string
}

func (e *MissingArtifactError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("episode %d has no %s", e.EpisodeID, e.Kind)
	}
	return fmt.Sprintf("episode %d %s %q is missing", e.EpisodeID, e.Kind, e.Path)
}

// ValidationError reports bad caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
