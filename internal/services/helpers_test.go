package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dramafeed/internal/database"
	"dramafeed/internal/models"
	"dramafeed/internal/storage"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.ConnectSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(context.Background(), db))
	return db
}

func newTestCatalog(t *testing.T, policy string) *CatalogService {
	t.Helper()
	return NewCatalogService(newTestDB(t), policy)
}

func newTestStore(t *testing.T) (*storage.LocalStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalStore(root)
	require.NoError(t, err)
	return store, root
}

// seedEpisode inserts a row and, when withMedia is set, a media artifact for it.
func seedEpisode(t *testing.T, catalog *CatalogService, store storage.Store, title string, withMedia, withThumb bool) *models.Episode {
	t.Helper()
	ctx := context.Background()
	id := strings.ReplaceAll(strings.ToLower(title), " ", "-")

	ep := models.NewEpisode{
		Title:           title,
		Genre:           models.GenreDrama,
		Description:     "Will " + title + " survive?",
		MediaPath:       storage.MediaKey(id),
		DurationSeconds: 60,
		MediaSeconds:    60,
	}
	if withThumb {
		ep.ThumbnailPath = storage.ThumbnailKey(id)
	}

	src := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.WriteFile(src, []byte(title), 0o644))
	if withMedia {
		require.NoError(t, store.Put(ctx, ep.MediaPath, src, ""))
	}
	if withThumb {
		require.NoError(t, store.Put(ctx, ep.ThumbnailPath, src, ""))
	}

	created, err := catalog.Insert(ctx, ep)
	require.NoError(t, err)
	return created
}

// listFiles returns every regular file under root, relative to it.
func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

type fakeTrimmer struct {
	seconds float64
	err     error
	delay   time.Duration
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *fakeTrimmer) Trim(ctx context.Context, _, out string, maxSeconds int) (float64, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if f.err != nil {
		return 0, f.err
	}
	seconds := f.seconds
	if seconds == 0 {
		seconds = float64(maxSeconds)
	}
	return seconds, os.WriteFile(out, []byte("trimmed"), 0o644)
}

type fakeFrames struct {
	mu     sync.Mutex
	failAt map[time.Duration]bool
	calls  []time.Duration
	delay  time.Duration
}

func (f *fakeFrames) Extract(ctx context.Context, _, out string, at time.Duration) error {
	f.mu.Lock()
	f.calls = append(f.calls, at)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return &models.MediaProcessingError{Op: "thumbnail", Path: out, Err: ctx.Err()}
		}
	}
	if f.failAt[at] {
		return &models.MediaProcessingError{Op: "thumbnail", Path: out, Err: errors.New("no frame")}
	}
	return os.WriteFile(out, []byte("jpeg"), 0o644)
}

// flakyStore fails Put for keys in the given area.
type flakyStore struct {
	storage.Store
	failArea string
}

func (s *flakyStore) Put(ctx context.Context, key, localPath, contentType string) error {
	if strings.HasPrefix(key, s.failArea+"/") {
		return errors.New("bucket unavailable")
	}
	return s.Store.Put(ctx, key, localPath, contentType)
}

func validRequest(title string) models.IngestRequest {
	return models.IngestRequest{
		Title:                 title,
		Genre:                 "comedy",
		Description:           "A twist nobody saw coming",
		TargetDurationSeconds: 60,
	}
}

func defaultIngestOptions(t *testing.T) IngestOptions {
	return IngestOptions{
		ScratchDir:      t.TempDir(),
		MaxUploadBytes:  1024,
		MediaTimeout:    5 * time.Second,
		ThumbnailOffset: time.Second,
		Concurrency:     1,
	}
}
