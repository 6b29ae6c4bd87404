package extractor

import (
	"context"

	"github.com/naglis/mediaresolver/internal/config"
	"github.com/naglis/mediaresolver/internal/metrics"
	"github.com/naglis/mediaresolver/internal/models"
	"github.com/naglis/mediaresolver/internal/streams"
)

// assetURLs carries the up-to-three delivery URLs a track asset may have.
type assetURLs struct {
	Progressive string
	DASH        string
	HLS         string
}

// expandAsset turns delivery URLs into formats. The progressive URL becomes
// an audio-only direct format without probing. DASH and HLS URLs are first
// normalized to the canonical site manifest path, then expanded through the
// manifest parsers. A failed protocol expansion is absorbed; the remaining
// protocols still contribute. The result may be empty, which degrades the
// item to metadata only.
func expandAsset(ctx context.Context, expander streams.Expander, asset assetURLs, itemID string) []models.Format {
	logger := config.GetLogger()
	var formats []models.Format

	if asset.Progressive != "" {
		formats = append(formats, models.Format{
			FormatID: "http",
			URL:      asset.Progressive,
			VCodec:   models.VCodecNone,
		})
	}

	if asset.DASH != "" {
		if manifestURL, ok := streams.NormalizeDASH(asset.DASH); ok {
			dashFormats, err := expander.ExpandDASH(ctx, manifestURL, itemID)
			if err != nil {
				metrics.StreamExpansionFailuresTotal.WithLabelValues("dash").Inc()
				logger.Debug().Err(err).Str("itemID", itemID).Msg("DASH expansion failed, skipping protocol")
			} else {
				formats = append(formats, dashFormats...)
			}
		}
	}

	if asset.HLS != "" {
		if manifestURL, ok := streams.NormalizeHLS(asset.HLS); ok {
			hlsFormats, _, err := expander.ExpandHLS(ctx, manifestURL, itemID)
			if err != nil {
				metrics.StreamExpansionFailuresTotal.WithLabelValues("hls").Inc()
				logger.Debug().Err(err).Str("itemID", itemID).Msg("HLS expansion failed, skipping protocol")
			} else {
				formats = append(formats, hlsFormats...)
			}
		}
	}

	return formats
}
