package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dramafeed/internal/config"
	"dramafeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name   string
		cursor int
		size   int
		dir    models.Direction
		want   int
	}{
		{"next", 0, 3, models.DirectionNext, 1},
		{"next wraps", 2, 3, models.DirectionNext, 0},
		{"previous", 2, 3, models.DirectionPrevious, 1},
		{"previous wraps", 0, 3, models.DirectionPrevious, 2},
		{"single next", 0, 1, models.DirectionNext, 0},
		{"single previous", 0, 1, models.DirectionPrevious, 0},
		{"empty", 0, 0, models.DirectionNext, 0},
		{"stale cursor", 7, 3, models.DirectionNext, 1},
		{"unknown direction", 1, 3, "sideways", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(tt.cursor, tt.size, tt.dir))
		})
	}
}

func TestAdvance_RoundTrips(t *testing.T) {
	for size := 1; size <= 5; size++ {
		for c := 0; c < size; c++ {
			next := Advance(c, size, models.DirectionNext)
			assert.Equal(t, c, Advance(next, size, models.DirectionPrevious))

			cursor := c
			for i := 0; i < size; i++ {
				cursor = Advance(cursor, size, models.DirectionNext)
			}
			assert.Equal(t, c, cursor, "size steps forward returns to start")
		}
	}
}

func TestClampCursor(t *testing.T) {
	assert.Equal(t, 2, ClampCursor(2, 3))
	assert.Equal(t, 0, ClampCursor(3, 3))
	assert.Equal(t, 0, ClampCursor(-1, 3))
	assert.Equal(t, 0, ClampCursor(0, 0))
}

func TestSessionStore_UpdateAndSweep(t *testing.T) {
	store := NewSessionStore(0)
	defer store.Close()

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	store.ttl = time.Minute

	assert.Equal(t, 0, store.Cursor("alice"))
	assert.Equal(t, 2, store.Update("alice", func(int) int { return 2 }))
	assert.Equal(t, 3, store.Update("alice", func(c int) int { return c + 1 }))

	clock = clock.Add(30 * time.Second)
	store.Update("bob", func(int) int { return 1 })
	assert.Equal(t, 2, store.Len())

	clock = clock.Add(45 * time.Second)
	assert.Equal(t, 1, store.sweep())
	assert.Equal(t, 0, store.Cursor("alice"))
	assert.Equal(t, 1, store.Cursor("bob"))

	store.Forget("bob")
	assert.Zero(t, store.Len())
}

func TestSessionStore_CloseStopsJanitor(t *testing.T) {
	store := NewSessionStore(time.Hour)
	store.Close()
	store.Close()
}

type playbackFixture struct {
	catalog *CatalogService
	root    string
	svc     *PlaybackService
	eps     []*models.Episode
}

func newPlaybackFixture(t *testing.T, titles ...string) *playbackFixture {
	t.Helper()
	store, root := newTestStore(t)
	sessions := NewSessionStore(0)
	t.Cleanup(sessions.Close)

	f := &playbackFixture{
		catalog: newTestCatalog(t, config.TitlePolicyReject),
		root:    root,
	}
	f.svc = NewPlaybackService(f.catalog, store, sessions)
	for _, title := range titles {
		f.eps = append(f.eps, seedEpisode(t, f.catalog, store, title, true, true))
	}
	return f
}

func TestPlayback_EmptyCatalog(t *testing.T) {
	f := newPlaybackFixture(t)
	ctx := context.Background()

	_, err := f.svc.Current(ctx, "viewer")
	assert.ErrorIs(t, err, models.ErrCatalogEmpty)
	_, err = f.svc.Navigate(ctx, "viewer", models.DirectionNext)
	assert.ErrorIs(t, err, models.ErrCatalogEmpty)
	assert.Equal(t, 0, f.svc.Sessions().Cursor("viewer"))
}

func TestPlayback_NavigateWrapsBothWays(t *testing.T) {
	f := newPlaybackFixture(t, "A", "B", "C")
	ctx := context.Background()

	view, err := f.svc.Current(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Cursor)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, "A", view.Episode.Title)
	assert.Equal(t, "Will A survive?", view.Episode.Description)
	assert.True(t, view.MediaAvailable)
	assert.True(t, view.ThumbnailAvailable)
	assert.Empty(t, view.Placeholder)

	view, err = f.svc.Navigate(ctx, "v", models.DirectionPrevious)
	require.NoError(t, err)
	assert.Equal(t, "C", view.Episode.Title)

	var titles []string
	for i := 0; i < 3; i++ {
		view, err = f.svc.Navigate(ctx, "v", models.DirectionNext)
		require.NoError(t, err)
		titles = append(titles, view.Episode.Title)
	}
	assert.Equal(t, []string{"A", "B", "C"}, titles)
}

func TestPlayback_ViewersAreIndependent(t *testing.T) {
	f := newPlaybackFixture(t, "A", "B")
	ctx := context.Background()

	_, err := f.svc.Navigate(ctx, "one", models.DirectionNext)
	require.NoError(t, err)

	view, err := f.svc.Current(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, "A", view.Episode.Title)
}

func TestPlayback_StaleCursorResets(t *testing.T) {
	f := newPlaybackFixture(t, "A", "B")
	f.svc.Sessions().Update("v", func(int) int { return 9 })

	view, err := f.svc.Current(context.Background(), "v")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Cursor)
}

func TestPlayback_Select(t *testing.T) {
	f := newPlaybackFixture(t, "A", "B", "C")
	ctx := context.Background()

	view, err := f.svc.Select(ctx, "v", f.eps[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Cursor)

	view, err = f.svc.Navigate(ctx, "v", models.DirectionNext)
	require.NoError(t, err)
	assert.Equal(t, "A", view.Episode.Title)

	_, err = f.svc.Select(ctx, "v", 999)
	var nf *models.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestPlayback_InvalidDirection(t *testing.T) {
	f := newPlaybackFixture(t, "A")
	_, err := f.svc.Navigate(context.Background(), "v", "up")
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestPlayback_MissingMediaDegradesToPlaceholder(t *testing.T) {
	f := newPlaybackFixture(t, "A", "B")
	require.NoError(t, os.Remove(filepath.Join(f.root, filepath.FromSlash(f.eps[1].MediaPath))))

	view, err := f.svc.Navigate(context.Background(), "v", models.DirectionNext)
	require.NoError(t, err)
	assert.Equal(t, "B", view.Episode.Title)
	assert.False(t, view.MediaAvailable)
	assert.Equal(t, MediaUnavailableMessage, view.Placeholder)

	view, err = f.svc.Navigate(context.Background(), "v", models.DirectionNext)
	require.NoError(t, err)
	assert.True(t, view.MediaAvailable, "navigation continues past a broken episode")
}

func TestResolveArtifact(t *testing.T) {
	f := newPlaybackFixture(t, "A")
	ep := *f.eps[0]

	key, err := ResolveArtifact(context.Background(), f.svc.store, &ep, models.ArtifactMedia)
	require.NoError(t, err)
	assert.Equal(t, ep.MediaPath, key)

	ep.ThumbnailPath = ""
	_, err = ResolveArtifact(context.Background(), f.svc.store, &ep, models.ArtifactThumbnail)
	var missing *models.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, models.ArtifactThumbnail, missing.Kind)
	assert.Empty(t, missing.Path)
}
