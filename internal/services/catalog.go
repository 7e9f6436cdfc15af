// ===============================
// internal/services/catalog.go - Episode Catalog Store
// ===============================

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dramafeed/internal/config"
	"dramafeed/internal/database"
	"dramafeed/internal/logging"
	"dramafeed/internal/models"

	"github.com/jmoiron/sqlx"
)

const episodeColumns = `id, title, genre, description, media_path, thumbnail_path,
	duration_seconds, media_seconds, created_at`

// maxTitleSuffix bounds the "Title (n)" search under the suffix policy
const maxTitleSuffix = 1000

type CatalogService struct {
	db          *sqlx.DB
	titlePolicy string
}

func NewCatalogService(db *sqlx.DB, titlePolicy string) *CatalogService {
	if titlePolicy == "" {
		titlePolicy = config.TitlePolicyReject
	}
	return &CatalogService{db: db, titlePolicy: titlePolicy}
}

// TitlePolicy returns the configured collision policy
func (s *CatalogService) TitlePolicy() string {
	return s.titlePolicy
}

// Insert stores a new episode and returns it with its assigned id.
// The title check and the insert share one transaction.
func (s *CatalogService) Insert(ctx context.Context, ep models.NewEpisode) (*models.Episode, error) {
	if err := validateNewEpisode(&ep); err != nil {
		return nil, err
	}

	created := &models.Episode{
		Title:           ep.Title,
		Genre:           ep.Genre,
		Description:     ep.Description,
		MediaPath:       ep.MediaPath,
		ThumbnailPath:   ep.ThumbnailPath,
		DurationSeconds: ep.DurationSeconds,
		MediaSeconds:    ep.MediaSeconds,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}

	err := database.Transaction(ctx, s.db, func(tx *sqlx.Tx) error {
		title, err := s.resolveTitle(ctx, tx, ep.Title)
		if err != nil {
			return err
		}
		created.Title = title

		query := tx.Rebind(`
			INSERT INTO episodes (
				title, genre, description, media_path, thumbnail_path,
				duration_seconds, media_seconds, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)

		return tx.QueryRowxContext(ctx, query,
			created.Title, created.Genre, created.Description, created.MediaPath,
			created.ThumbnailPath, created.DurationSeconds, created.MediaSeconds, created.CreatedAt,
		).Scan(&created.ID)
	})
	if err != nil {
		var dup *models.DuplicateTitleError
		if errors.As(err, &dup) {
			return nil, dup
		}
		return nil, &models.StorageFault{Op: "insert episode", Err: err}
	}

	logger := logging.FromContext(ctx, "catalog")
	logger.Info().
		Int64("episode_id", created.ID).
		Str("title", created.Title).
		Msg("📼 episode stored")
	return created, nil
}

// resolveTitle applies the title collision policy inside tx
func (s *CatalogService) resolveTitle(ctx context.Context, tx *sqlx.Tx, title string) (string, error) {
	if s.titlePolicy == config.TitlePolicyAllow {
		return title, nil
	}

	taken, err := titleTaken(ctx, tx, title)
	if err != nil || !taken {
		return title, err
	}

	if s.titlePolicy == config.TitlePolicyReject {
		return "", &models.DuplicateTitleError{Title: title}
	}

	for n := 2; n <= maxTitleSuffix; n++ {
		candidate := fmt.Sprintf("%s (%d)", title, n)
		taken, err := titleTaken(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", &models.DuplicateTitleError{Title: title}
}

func titleTaken(ctx context.Context, tx *sqlx.Tx, title string) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count, tx.Rebind("SELECT COUNT(*) FROM episodes WHERE title = ?"), title)
	return count > 0, err
}

func validateNewEpisode(ep *models.NewEpisode) error {
	ep.Title = strings.TrimSpace(ep.Title)
	if err := models.ValidateTitle(ep.Title); err != nil {
		return err
	}
	genre, err := models.ParseGenre(string(ep.Genre))
	if err != nil {
		return err
	}
	ep.Genre = genre
	if ep.MediaPath == "" {
		return &models.ValidationError{Field: "mediaPath", Message: "media path is required"}
	}
	if ep.DurationSeconds < models.MinEpisodeDurationSeconds || ep.DurationSeconds > models.MaxEpisodeDurationSeconds {
		return &models.ValidationError{
			Field:   "duration",
			Message: fmt.Sprintf("duration must be between %d and %d seconds", models.MinEpisodeDurationSeconds, models.MaxEpisodeDurationSeconds),
		}
	}
	return nil
}

// ListAll returns every episode in insertion order
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Episode, error) {
	episodes := []models.Episode{}
	query := `SELECT ` + episodeColumns + ` FROM episodes ORDER BY id ASC`
	if err := s.db.SelectContext(ctx, &episodes, query); err != nil {
		return nil, &models.StorageFault{Op: "list episodes", Err: err}
	}
	return episodes, nil
}

// Get returns one episode by id
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Episode, error) {
	var episode models.Episode
	query := s.db.Rebind(`SELECT ` + episodeColumns + ` FROM episodes WHERE id = ?`)
	err := s.db.GetContext(ctx, &episode, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, &models.StorageFault{Op: "get episode", Err: err}
	}
	return &episode, nil
}

// Count returns the catalog size
func (s *CatalogService) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM episodes`); err != nil {
		return 0, &models.StorageFault{Op: "count episodes", Err: err}
	}
	return count, nil
}
