// Package extractor resolves supported media-site URLs into manifests.
// Each site has one Extractor; the Registry dispatches a URL to the first
// extractor whose pattern recognizes it.
package extractor

import (
	"context"
	"time"

	"github.com/naglis/mediaresolver/internal/apperrors"
	"github.com/naglis/mediaresolver/internal/config"
	"github.com/naglis/mediaresolver/internal/metrics"
	"github.com/naglis/mediaresolver/internal/models"
)

// Extractor turns a URL it recognizes into a resolved manifest.
type Extractor interface {
	// Name identifies the site in logs and metrics.
	Name() string

	// Match reports whether rawURL belongs to this extractor's site.
	Match(rawURL string) bool

	// Extract resolves rawURL into a manifest. It is only called with
	// URLs for which Match returned true.
	Extract(ctx context.Context, rawURL string) (*models.Manifest, error)
}

// Registry dispatches URLs across a fixed, ordered set of extractors.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry that tries the given extractors in order.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Resolve finds the extractor matching rawURL and runs it. Returns
// apperrors.NoMatchError when no extractor recognizes the URL.
func (r *Registry) Resolve(ctx context.Context, rawURL string) (*models.Manifest, error) {
	logger := config.GetLogger()

	for _, ex := range r.extractors {
		if !ex.Match(rawURL) {
			continue
		}

		start := time.Now()
		manifest, err := ex.Extract(ctx, rawURL)
		elapsed := time.Since(start)
		if err != nil {
			metrics.ExtractionsTotal.WithLabelValues(ex.Name(), "error").Inc()
			logger.Error().
				Err(err).
				Str("site", ex.Name()).
				Str("url", rawURL).
				Dur("elapsed", elapsed).
				Msg("Extraction failed")
			return nil, err
		}

		metrics.ExtractionsTotal.WithLabelValues(ex.Name(), "success").Inc()
		logger.Info().
			Str("site", ex.Name()).
			Str("id", manifest.ID()).
			Dur("elapsed", elapsed).
			Msg("Extraction finished")
		return manifest, nil
	}

	return nil, apperrors.NewNoMatchError(rawURL)
}
