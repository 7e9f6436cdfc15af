// ===============================
// internal/services/ingest.go - Episode Ingestion Pipeline
// ===============================

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"dramafeed/internal/logging"
	"dramafeed/internal/metrics"
	"dramafeed/internal/models"
	"dramafeed/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// rollbackTimeout bounds artifact cleanup after the request context is gone
const rollbackTimeout = 30 * time.Second

// Trimmer re-encodes the first maxSeconds of a clip
type Trimmer interface {
	Trim(ctx context.Context, inputPath, outputPath string, maxSeconds int) (float64, error)
}

// FrameExtractor writes a still frame of a clip
type FrameExtractor interface {
	Extract(ctx context.Context, videoPath, outputPath string, at time.Duration) error
}

// EpisodeWriter is the catalog half the pipeline commits to
type EpisodeWriter interface {
	Insert(ctx context.Context, ep models.NewEpisode) (*models.Episode, error)
}

// IngestOptions tunes the pipeline
type IngestOptions struct {
	ScratchDir      string
	MaxUploadBytes  int64
	MediaTimeout    time.Duration
	ThumbnailOffset time.Duration
	Concurrency     int64
}

type IngestService struct {
	catalog EpisodeWriter
	store   storage.Store
	trimmer Trimmer
	frames  FrameExtractor
	opts    IngestOptions
	gate    *semaphore.Weighted
	newKey  func() string
}

func NewIngestService(catalog EpisodeWriter, store storage.Store, trimmer Trimmer, frames FrameExtractor, opts IngestOptions) *IngestService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	return &IngestService{
		catalog: catalog,
		store:   store,
		trimmer: trimmer,
		frames:  frames,
		opts:    opts,
		gate:    semaphore.NewWeighted(opts.Concurrency),
		newKey:  uuid.NewString,
	}
}

// Ingest trims the upload, captures a thumbnail, publishes both artifacts and
// records the episode. Either all of it lands or none of it does.
func (s *IngestService) Ingest(ctx context.Context, upload io.Reader, req models.IngestRequest) (*models.Episode, error) {
	started := time.Now()
	logger := logging.FromContext(ctx, "ingest")

	genre, err := req.Validate()
	if err != nil {
		metrics.RecordIngest(metrics.OutcomeRejected, 0)
		return nil, err
	}

	if !s.gate.TryAcquire(1) {
		metrics.RecordIngest(metrics.OutcomeBusy, 0)
		return nil, models.ErrIngestBusy
	}
	defer s.gate.Release(1)

	episode, err := s.run(ctx, upload, req, genre)
	metrics.RecordIngest(ingestOutcome(err), time.Since(started))
	if err != nil {
		logger.Warn().Err(err).Str("title", req.Title).Msg("❌ ingestion failed")
		return nil, err
	}

	logger.Info().
		Int64("episode_id", episode.ID).
		Str("title", episode.Title).
		Float64("media_seconds", episode.MediaSeconds).
		Bool("thumbnail", episode.HasThumbnail()).
		Dur("elapsed", time.Since(started)).
		Msg("✅ episode ingested")
	return episode, nil
}

func (s *IngestService) run(ctx context.Context, upload io.Reader, req models.IngestRequest, genre models.Genre) (*models.Episode, error) {
	jobDir, err := os.MkdirTemp(s.opts.ScratchDir, "ingest-*")
	if err != nil {
		return nil, &models.StorageFault{Op: "create scratch dir", Err: err}
	}
	defer os.RemoveAll(jobDir)

	sourcePath := filepath.Join(jobDir, "upload")
	if err := s.spool(upload, sourcePath); err != nil {
		return nil, err
	}

	trimmedPath := filepath.Join(jobDir, "episode.mp4")
	trimCtx, cancel := s.mediaContext(ctx)
	mediaSeconds, err := s.trimmer.Trim(trimCtx, sourcePath, trimmedPath, req.TargetDurationSeconds)
	cancel()
	if err != nil {
		return nil, err
	}

	thumbPath := filepath.Join(jobDir, "thumbnail.jpg")
	hasThumb := s.captureThumbnail(ctx, trimmedPath, thumbPath)

	storageID := s.newKey()
	newEpisode := models.NewEpisode{
		Title:           req.Title,
		Genre:           genre,
		Description:     req.Description,
		MediaPath:       storage.MediaKey(storageID),
		DurationSeconds: req.TargetDurationSeconds,
		MediaSeconds:    mediaSeconds,
	}
	if hasThumb {
		newEpisode.ThumbnailPath = storage.ThumbnailKey(storageID)
	}

	var published []string
	publish := func(key, localPath string) error {
		if err := s.store.Put(ctx, key, localPath, storage.ContentType(key)); err != nil {
			return &models.StorageFault{Op: "publish " + key, Err: err}
		}
		published = append(published, key)
		return nil
	}

	if err := publish(newEpisode.MediaPath, trimmedPath); err != nil {
		s.rollback(ctx, published)
		return nil, err
	}
	if hasThumb {
		if err := publish(newEpisode.ThumbnailPath, thumbPath); err != nil {
			s.rollback(ctx, published)
			return nil, err
		}
	}

	episode, err := s.catalog.Insert(ctx, newEpisode)
	if err != nil {
		s.rollback(ctx, published)
		return nil, err
	}
	return episode, nil
}

// mediaContext gives one ffmpeg call its own MediaTimeout budget
func (s *IngestService) mediaContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.MediaTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.MediaTimeout)
}

// spool copies the upload into the scratch dir, enforcing the size limit
func (s *IngestService) spool(upload io.Reader, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return &models.StorageFault{Op: "spool upload", Err: err}
	}
	defer f.Close()

	src := upload
	if s.opts.MaxUploadBytes > 0 {
		src = io.LimitReader(upload, s.opts.MaxUploadBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return &models.StorageFault{Op: "spool upload", Err: err}
	}
	if s.opts.MaxUploadBytes > 0 && n > s.opts.MaxUploadBytes {
		return &models.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("upload exceeds %d MB", s.opts.MaxUploadBytes/(1024*1024)),
		}
	}
	if n == 0 {
		return &models.ValidationError{Field: "file", Message: "file is empty"}
	}
	return f.Close()
}

// captureThumbnail tries the configured offset, then the first frame
func (s *IngestService) captureThumbnail(ctx context.Context, videoPath, thumbPath string) bool {
	logger := logging.FromContext(ctx, "ingest")

	offsets := []time.Duration{s.opts.ThumbnailOffset}
	if s.opts.ThumbnailOffset > 0 {
		offsets = append(offsets, 0)
	}
	for _, at := range offsets {
		extractCtx, cancel := s.mediaContext(ctx)
		err := s.frames.Extract(extractCtx, videoPath, thumbPath, at)
		cancel()
		if err == nil {
			return true
		}
		logger.Warn().Err(err).Dur("offset", at).Msg("⚠️ thumbnail extraction failed")
	}
	logger.Warn().Msg("⚠️ storing episode without thumbnail")
	return false
}

// rollback deletes every artifact published by this job
func (s *IngestService) rollback(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	logger := logging.FromContext(ctx, "ingest")

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	for _, key := range keys {
		if err := s.store.Delete(cleanupCtx, key); err != nil {
			logger.Error().Err(err).Str("key", key).Msg("🚨 failed to remove artifact during rollback")
			continue
		}
		logger.Info().Str("key", key).Msg("🧹 artifact rolled back")
	}
	metrics.RecordRollback(len(keys))
}

func ingestOutcome(err error) string {
	var (
		mpe *models.MediaProcessingError
		dup *models.DuplicateTitleError
		ve  *models.ValidationError
	)
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &ve):
		return metrics.OutcomeRejected
	case errors.As(err, &mpe):
		return metrics.OutcomeMedia
	case errors.As(err, &dup):
		return metrics.OutcomeDuplicate
	default:
		return metrics.OutcomeStorage
	}
}
