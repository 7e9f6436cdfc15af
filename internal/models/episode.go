// ===============================
// internal/models/episode.go
// ===============================

package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Episode duration bounds accepted by the ingestion form
const (
	MinEpisodeDurationSeconds = 60
	MaxEpisodeDurationSeconds = 120 // 2 minutes
)

// MaxTitleLength matches the title column width, in characters
const MaxTitleLength = 255

// Genre is the fixed set of catalog genres
type Genre string

const (
	GenreDrama      Genre = "Drama"
	GenreComedy     Genre = "Comedy"
	GenreTelenovela Genre = "Telenovela"
	GenreAnimation  Genre = "Animation"
)

// Genres lists every accepted genre in display order
var Genres = []Genre{GenreDrama, GenreComedy, GenreTelenovela, GenreAnimation}

// ParseGenre matches a genre name case-insensitively
func ParseGenre(s string) (Genre, error) {
	s = strings.TrimSpace(s)
	for _, g := range Genres {
		if strings.EqualFold(s, string(g)) {
			return g, nil
		}
	}
	return "", &ValidationError{Field: "genre", Message: fmt.Sprintf("unknown genre %q", s)}
}

// Episode is one catalog row. Paths are artifact storage keys, never title-derived.
type Episode struct {
	ID              int64     `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Genre           Genre     `json:"genre" db:"genre"`
	Description     string    `json:"description" db:"description"`
	MediaPath       string    `json:"mediaPath" db:"media_path"`
	ThumbnailPath   string    `json:"thumbnailPath" db:"thumbnail_path"`
	DurationSeconds int       `json:"durationSeconds" db:"duration_seconds"`
	MediaSeconds    float64   `json:"mediaSeconds" db:"media_seconds"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// HasThumbnail reports whether a thumbnail was recorded at ingestion
func (e *Episode) HasThumbnail() bool {
	return e.ThumbnailPath != ""
}

// NewEpisode carries the fields the catalog stores on insert
type NewEpisode struct {
	Title           string
	Genre           Genre
	Description     string
	MediaPath       string
	ThumbnailPath   string
	DurationSeconds int
	MediaSeconds    float64
}

// IngestRequest is the metadata half of an admin upload
type IngestRequest struct {
	Title                 string `form:"title"`
	Genre                 string `form:"genre"`
	Description           string `form:"description"`
	TargetDurationSeconds int    `form:"duration"`
}

// ValidateTitle checks a trimmed title is present and fits the catalog column
func ValidateTitle(title string) error {
	if title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)}
	}
	return nil
}

// Validate normalises the request and returns the parsed genre
func (r *IngestRequest) Validate() (Genre, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)

	if err := ValidateTitle(r.Title); err != nil {
		return "", err
	}
	genre, err := ParseGenre(r.Genre)
	if err != nil {
		return "", err
	}
	if r.TargetDurationSeconds < MinEpisodeDurationSeconds || r.TargetDurationSeconds > MaxEpisodeDurationSeconds {
		return "", &ValidationError{
			Field:   "duration",
			Message: fmt.Sprintf("duration must be between %d and %d seconds", MinEpisodeDurationSeconds, MaxEpisodeDurationSeconds),
		}
	}
	return genre, nil
}

// Direction of playback navigation
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// PlaybackView is what a viewer sees for the current cursor
type PlaybackView struct {
	Cursor             int      `json:"cursor"`
	Total              int      `json:"total"`
	Episode            *Episode `json:"episode"`
	MediaAvailable     bool     `json:"mediaAvailable"`
	ThumbnailAvailable bool     `json:"thumbnailAvailable"`
	Placeholder        string   `json:"placeholder,omitempty"`
}

// BrowseItem is one row of the catalog browser
type BrowseItem struct {
	Position           int      `json:"position"`
	Episode            *Episode `json:"episode"`
	ThumbnailAvailable bool     `json:"thumbnailAvailable"`
}
