package services

import (
	"context"

	"dramafeed/internal/models"
	"dramafeed/internal/storage"
)

// BrowserService lists the catalog as a selectable grid
type BrowserService struct {
	catalog EpisodeLister
	store   storage.Store
}

func NewBrowserService(catalog EpisodeLister, store storage.Store) *BrowserService {
	return &BrowserService{catalog: catalog, store: store}
}

// ListForDisplay returns every episode in playback order. Position is the
// cursor a viewer lands on when selecting the item.
func (s *BrowserService) ListForDisplay(ctx context.Context) ([]models.BrowseItem, error) {
	episodes, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.BrowseItem, 0, len(episodes))
	for i := range episodes {
		episode := episodes[i]
		items = append(items, models.BrowseItem{
			Position:           i,
			Episode:            &episode,
			ThumbnailAvailable: artifactAvailable(ctx, s.store, &episode, models.ArtifactThumbnail),
		})
	}
	return items, nil
}
