package streams

import (
	"context"
	"fmt"
	"strings"

	"github.com/zencoder/go-dash/v3/mpd"

	"github.com/naglis/mediaresolver/internal/config"
	"github.com/naglis/mediaresolver/internal/models"
)

// ExpandDASH downloads the MPD at manifestURL and returns one format per
// representation. Formats keep the manifest URL; the format id selects the
// representation for the downloader.
func (e *httpExpander) ExpandDASH(ctx context.Context, manifestURL, itemID string) ([]models.Format, error) {
	logger := config.GetLogger()

	body, err := e.fetcher.GetBytes(ctx, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch DASH manifest for %s: %w", itemID, err)
	}

	manifest, err := mpd.ReadFromString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse DASH manifest for %s: %w", itemID, err)
	}

	var formats []models.Format
	for _, period := range manifest.Periods {
		if period == nil {
			continue
		}
		for _, set := range period.AdaptationSets {
			if set == nil {
				continue
			}
			for _, rep := range set.Representations {
				if rep == nil {
					continue
				}
				formats = append(formats, dashRepresentationFormat(manifestURL, set, rep))
			}
		}
	}

	logger.Debug().
		Str("itemID", itemID).
		Int("representations", len(formats)).
		Msg("Expanded DASH manifest")
	return formats, nil
}

func dashRepresentationFormat(manifestURL string, set *mpd.AdaptationSet, rep *mpd.Representation) models.Format {
	format := models.Format{
		FormatID: "dash",
		URL:      manifestURL,
	}
	if rep.ID != nil && *rep.ID != "" {
		format.FormatID = "dash-" + *rep.ID
	}
	if rep.Bandwidth != nil && *rep.Bandwidth > 0 {
		bitrate := *rep.Bandwidth
		format.Bitrate = &bitrate
	}
	if rep.Width != nil && rep.Height != nil {
		w := int(*rep.Width)
		h := int(*rep.Height)
		format.Width = &w
		format.Height = &h
	}

	codecs := ""
	if rep.Codecs != nil {
		codecs = *rep.Codecs
	}
	format.VCodec, format.ACodec = splitCodecs(codecs)

	// Audio-only adaptation sets may omit codecs entirely.
	if format.VCodec == "" && isAudioMime(set, rep) {
		format.VCodec = models.VCodecNone
	}
	return format
}

func isAudioMime(set *mpd.AdaptationSet, rep *mpd.Representation) bool {
	if rep.MimeType != nil && strings.HasPrefix(*rep.MimeType, "audio/") {
		return true
	}
	if set.MimeType != nil && strings.HasPrefix(*set.MimeType, "audio/") {
		return true
	}
	if set.ContentType != nil && *set.ContentType == "audio" {
		return true
	}
	return false
}
