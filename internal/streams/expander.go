package streams

import (
	"context"

	"github.com/naglis/mediaresolver/internal/fetch"
	"github.com/naglis/mediaresolver/internal/models"
)

// Expander resolves a streaming-manifest URL into the formats it describes.
// Implementations fetch and parse the manifest document; callers decide
// whether a failure is fatal for the extraction.
type Expander interface {
	// ExpandHLS fetches an HLS playlist and returns one format per variant,
	// plus any subtitle renditions declared in the master playlist, keyed
	// by language code.
	ExpandHLS(ctx context.Context, manifestURL, itemID string) ([]models.Format, map[string][]models.SubtitleTrack, error)

	// ExpandDASH fetches a DASH MPD and returns one format per representation.
	ExpandDASH(ctx context.Context, manifestURL, itemID string) ([]models.Format, error)
}

type httpExpander struct {
	fetcher fetch.Fetcher
}

// NewExpander creates an Expander that downloads manifests through f.
func NewExpander(f fetch.Fetcher) Expander {
	return &httpExpander{fetcher: f}
}
