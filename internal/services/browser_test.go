package services

import (
	"context"
	"testing"

	"dramafeed/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowser_ListForDisplayMatchesPlaybackOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	catalog := newTestCatalog(t, config.TitlePolicyReject)

	seedEpisode(t, catalog, store, "A", true, true)
	seedEpisode(t, catalog, store, "B", true, false)
	seedEpisode(t, catalog, store, "C", true, true)

	items, err := NewBrowserService(catalog, store).ListForDisplay(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	for i, item := range items {
		assert.Equal(t, i, item.Position)
	}
	assert.True(t, items[0].ThumbnailAvailable)
	assert.False(t, items[1].ThumbnailAvailable)
	assert.True(t, items[2].ThumbnailAvailable)

	sessions := NewSessionStore(0)
	defer sessions.Close()
	playback := NewPlaybackService(catalog, store, sessions)

	view, err := playback.Select(ctx, "v", items[1].Episode.ID)
	require.NoError(t, err)
	assert.Equal(t, items[1].Position, view.Cursor)
	assert.Equal(t, "B", view.Episode.Title)
}

func TestBrowser_EmptyCatalog(t *testing.T) {
	store, _ := newTestStore(t)
	items, err := NewBrowserService(newTestCatalog(t, config.TitlePolicyReject), store).ListForDisplay(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}
