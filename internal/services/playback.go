// ===============================
// internal/services/playback.go - Playback Sessions
// ===============================

package services

import (
	"context"
	"sync"
	"time"

	"dramafeed/internal/logging"
	"dramafeed/internal/metrics"
	"dramafeed/internal/models"
	"dramafeed/internal/storage"
)

// MediaUnavailableMessage is shown in place of a clip whose file is gone
const MediaUnavailableMessage = "This episode is temporarily unavailable."

// Advance moves cursor one step in dir over a catalog of size entries, wrapping at both ends.
func Advance(cursor, size int, dir models.Direction) int {
	if size <= 0 {
		return 0
	}
	cursor = ClampCursor(cursor, size)
	switch dir {
	case models.DirectionNext:
		return (cursor + 1) % size
	case models.DirectionPrevious:
		return (cursor - 1 + size) % size
	default:
		return cursor
	}
}

// ClampCursor resets an out-of-range cursor to the first episode.
func ClampCursor(cursor, size int) int {
	if cursor < 0 || cursor >= size {
		return 0
	}
	return cursor
}

// ===============================
// SESSION STORE
// ===============================

type session struct {
	cursor   int
	lastSeen time.Time
}

// SessionStore keeps one cursor per viewer in memory and forgets idle viewers.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSessionStore starts the idle janitor when ttl is positive
func NewSessionStore(ttl time.Duration) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor(janitorInterval(ttl))
	} else {
		close(s.done)
	}
	return s
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func (s *SessionStore) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				logger := logging.WithComponent("playback")
				logger.Debug().Int("expired", n).Msg("🧹 expired idle playback sessions")
			}
		}
	}
}

// sweep drops sessions idle for longer than ttl
func (s *SessionStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	expired := 0
	for viewer, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, viewer)
			expired++
		}
	}
	metrics.SetActiveSessions(len(s.sessions))
	return expired
}

// Update applies fn to the viewer's cursor atomically and stores the result.
// Unknown viewers start at cursor 0.
func (s *SessionStore) Update(viewer string, fn func(cursor int) int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[viewer]
	if !ok {
		sess = &session{}
		s.sessions[viewer] = sess
		metrics.SetActiveSessions(len(s.sessions))
	}
	sess.cursor = fn(sess.cursor)
	sess.lastSeen = s.now()
	return sess.cursor
}

// Cursor returns the viewer's stored cursor, 0 for unknown viewers.
func (s *SessionStore) Cursor(viewer string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[viewer]; ok {
		return sess.cursor
	}
	return 0
}

// Forget drops a viewer's session
func (s *SessionStore) Forget(viewer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, viewer)
	metrics.SetActiveSessions(len(s.sessions))
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor and waits for it to exit
func (s *SessionStore) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// ===============================
// PLAYBACK SERVICE
// ===============================

// EpisodeLister is the catalog half playback and browsing read from
type EpisodeLister interface {
	ListAll(ctx context.Context) ([]models.Episode, error)
}

type PlaybackService struct {
	catalog  EpisodeLister
	store    storage.Store
	sessions *SessionStore
}

func NewPlaybackService(catalog EpisodeLister, store storage.Store, sessions *SessionStore) *PlaybackService {
	return &PlaybackService{catalog: catalog, store: store, sessions: sessions}
}

// Sessions exposes the session store for connection-scoped viewers
func (s *PlaybackService) Sessions() *SessionStore {
	return s.sessions
}

// Current returns the viewer's episode, resetting a stale cursor to 0.
func (s *PlaybackService) Current(ctx context.Context, viewer string) (*models.PlaybackView, error) {
	return s.move(ctx, viewer, func(cursor, size int) int {
		return ClampCursor(cursor, size)
	})
}

// Navigate moves the viewer one episode forward or back with wrap-around.
func (s *PlaybackService) Navigate(ctx context.Context, viewer string, dir models.Direction) (*models.PlaybackView, error) {
	if dir != models.DirectionNext && dir != models.DirectionPrevious {
		return nil, &models.ValidationError{Field: "direction", Message: "direction must be next or previous"}
	}
	view, err := s.move(ctx, viewer, func(cursor, size int) int {
		return Advance(cursor, size, dir)
	})
	if err == nil {
		metrics.RecordNavigation(string(dir))
	}
	return view, err
}

// Select points the viewer at the episode with the given id.
func (s *PlaybackService) Select(ctx context.Context, viewer string, episodeID int64) (*models.PlaybackView, error) {
	episodes, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	position := -1
	for i := range episodes {
		if episodes[i].ID == episodeID {
			position = i
			break
		}
	}
	if position < 0 {
		return nil, &models.NotFoundError{ID: episodeID}
	}

	cursor := s.sessions.Update(viewer, func(int) int { return position })
	metrics.RecordNavigation("select")
	return s.view(ctx, episodes, cursor), nil
}

func (s *PlaybackService) move(ctx context.Context, viewer string, step func(cursor, size int) int) (*models.PlaybackView, error) {
	episodes, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	size := len(episodes)
	if size == 0 {
		s.sessions.Update(viewer, func(int) int { return 0 })
		return nil, models.ErrCatalogEmpty
	}

	cursor := s.sessions.Update(viewer, func(c int) int { return step(c, size) })
	return s.view(ctx, episodes, cursor), nil
}

// view resolves artifacts for the episode at cursor; a missing clip degrades to a placeholder.
func (s *PlaybackService) view(ctx context.Context, episodes []models.Episode, cursor int) *models.PlaybackView {
	episode := episodes[cursor]
	view := &models.PlaybackView{
		Cursor:  cursor,
		Total:   len(episodes),
		Episode: &episode,
	}

	view.MediaAvailable = artifactAvailable(ctx, s.store, &episode, models.ArtifactMedia)
	if !view.MediaAvailable {
		view.Placeholder = MediaUnavailableMessage
	}
	view.ThumbnailAvailable = artifactAvailable(ctx, s.store, &episode, models.ArtifactThumbnail)
	return view
}

// ResolveArtifact returns the storage key of an episode artifact or a MissingArtifactError.
func ResolveArtifact(ctx context.Context, store storage.Store, episode *models.Episode, kind string) (string, error) {
	key := episode.MediaPath
	if kind == models.ArtifactThumbnail {
		key = episode.ThumbnailPath
	}
	if key == "" {
		return "", &models.MissingArtifactError{EpisodeID: episode.ID, Kind: kind}
	}
	ok, err := store.Exists(ctx, key)
	if err != nil {
		return "", &models.StorageFault{Op: "stat " + key, Err: err}
	}
	if !ok {
		return "", &models.MissingArtifactError{EpisodeID: episode.ID, Kind: kind, Path: key}
	}
	return key, nil
}

// artifactAvailable logs and counts unresolvable artifacts instead of failing.
// An explicitly absent thumbnail is not counted.
func artifactAvailable(ctx context.Context, store storage.Store, episode *models.Episode, kind string) bool {
	if kind == models.ArtifactThumbnail && !episode.HasThumbnail() {
		return false
	}
	_, err := ResolveArtifact(ctx, store, episode, kind)
	if err == nil {
		return true
	}
	logger := logging.FromContext(ctx, "playback")
	logger.Warn().Err(err).Int64("episode_id", episode.ID).Str("kind", kind).Msg("⚠️ artifact unavailable")
	metrics.RecordMissingArtifact(kind)
	return false
}
