package streams

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/naglis/mediaresolver/internal/config"
	"github.com/naglis/mediaresolver/internal/models"
)

// ExpandHLS downloads the playlist at manifestURL and expands it into
// formats. Master playlists yield one format per variant; media playlists
// yield a single format pointing at the playlist itself. Subtitle
// renditions declared on master-playlist variants are returned keyed by
// language code.
func (e *httpExpander) ExpandHLS(ctx context.Context, manifestURL, itemID string) ([]models.Format, map[string][]models.SubtitleTrack, error) {
	logger := config.GetLogger()

	body, err := e.fetcher.GetBytes(ctx, manifestURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch HLS manifest for %s: %w", itemID, err)
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil {
		return nil, nil, fmt.Errorf("parse HLS manifest for %s: %w", itemID, err)
	}

	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse HLS manifest URL: %w", err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		formats, subtitles := expandMasterPlaylist(master, base)
		logger.Debug().
			Str("itemID", itemID).
			Int("variants", len(formats)).
			Int("subtitle_languages", len(subtitles)).
			Msg("Expanded HLS master playlist")
		return formats, subtitles, nil

	case m3u8.MEDIA:
		// A bare media playlist has exactly one rendition.
		return []models.Format{{
			FormatID: "hls",
			URL:      manifestURL,
		}}, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported HLS playlist type for %s", itemID)
	}
}

func expandMasterPlaylist(master *m3u8.MasterPlaylist, base *url.URL) ([]models.Format, map[string][]models.SubtitleTrack) {
	var formats []models.Format
	subtitles := make(map[string][]models.SubtitleTrack)
	seenSubtitleURLs := make(map[string]bool)

	for _, variant := range master.Variants {
		if variant == nil || variant.Iframe {
			continue
		}

		format := models.Format{
			FormatID: hlsFormatID(variant),
			URL:      resolveURL(base, variant.URI),
		}
		if variant.Bandwidth > 0 {
			bitrate := int64(variant.Bandwidth)
			format.Bitrate = &bitrate
		}
		if w, h, ok := parseResolutionAttr(variant.Resolution); ok {
			format.Width = &w
			format.Height = &h
		}
		format.VCodec, format.ACodec = splitCodecs(variant.Codecs)
		formats = append(formats, format)

		for _, alt := range variant.Alternatives {
			if alt == nil || !strings.EqualFold(alt.Type, "SUBTITLES") || alt.URI == "" {
				continue
			}
			lang := alt.Language
			if lang == "" {
				lang = alt.Name
			}
			subURL := resolveURL(base, alt.URI)
			key := lang + "\x00" + subURL
			if lang == "" || seenSubtitleURLs[key] {
				continue
			}
			seenSubtitleURLs[key] = true
			subtitles[lang] = append(subtitles[lang], models.SubtitleTrack{
				URL:  subURL,
				Name: alt.Name,
			})
		}
	}

	if len(subtitles) == 0 {
		subtitles = nil
	}
	return formats, subtitles
}

func hlsFormatID(variant *m3u8.Variant) string {
	if variant.Name != "" {
		return "hls-" + variant.Name
	}
	if variant.Bandwidth > 0 {
		return "hls-" + strconv.Itoa(int(variant.Bandwidth/1000))
	}
	return "hls"
}

// parseResolutionAttr parses an HLS RESOLUTION attribute ("1280x720").
func parseResolutionAttr(resolution string) (width, height int, ok bool) {
	parts := strings.SplitN(resolution, "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

// resolveURL resolves a possibly-relative manifest reference against base.
func resolveURL(base *url.URL, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}
