package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/naglis/mediaresolver/internal/apperrors"
	"github.com/naglis/mediaresolver/internal/config"
	"github.com/naglis/mediaresolver/internal/fetch"
	"github.com/naglis/mediaresolver/internal/metrics"
	"github.com/naglis/mediaresolver/internal/models"
	"github.com/naglis/mediaresolver/internal/streams"
	"github.com/naglis/mediaresolver/internal/thumbnail"
)

const ruutuAPIBase = "https://mcc.nm-ovp.nelonenmedia.fi"

var ruutuURLRe = regexp.MustCompile(`(?i)^https?://(?:www\.)?ruutu\.fi/(?:video|movie|stream)/(\d+)`)

// streamVariantKind selects how a named stream variant is turned into
// formats.
type streamVariantKind int

const (
	variantDirect streamVariantKind = iota
	variantHLS
	variantDASH
)

// streamVariantKinds maps known variant names to their protocol. Names not
// listed here fall through to the direct-format default, so an unknown name
// still yields a format instead of silently disappearing.
var streamVariantKinds = map[string]streamVariantKind{
	"android":  variantHLS,
	"apple":    variantHLS,
	"audioHls": variantHLS,
	"cast":     variantHLS,
	"samsung":  variantHLS,
	"webHls":   variantHLS,
	"dash":     variantDASH,
}

// RuutuExtractor resolves video and clip pages of the Finnish streaming
// site. Media metadata comes from a single JSON API call; formats are
// dispatched per named stream variant.
type RuutuExtractor struct {
	fetcher  fetch.Fetcher
	expander streams.Expander
	apiBase  string
}

// NewRuutu creates the video-site extractor.
func NewRuutu(f fetch.Fetcher, e streams.Expander) *RuutuExtractor {
	return &RuutuExtractor{fetcher: f, expander: e, apiBase: ruutuAPIBase}
}

// Name implements Extractor.
func (e *RuutuExtractor) Name() string { return "ruutu" }

// Match implements Extractor.
func (e *RuutuExtractor) Match(rawURL string) bool {
	return ruutuURLRe.MatchString(rawURL)
}

type ruutuVideo struct {
	Clip struct {
		Playback struct {
			Media ruutuMedia `json:"media"`
			DRM   struct {
				Enabled bool `json:"enabled"`
			} `json:"drm"`
			Runtime    *float64 `json:"runtime"`
			EndCredits *float64 `json:"endCredits"`
			MediaType  string   `json:"mediaType"`
		} `json:"playback"`
		Metadata             ruutuMetadata `json:"metadata"`
		PassthroughVariables struct {
			Themes string `json:"themes"`
		} `json:"passthroughVariables"`
	} `json:"clip"`
}

type ruutuMedia struct {
	StreamURLs map[string]*ruutuStreamVariant `json:"streamUrls"`
	Subtitles  []ruutuSubtitle                `json:"subtitles"`
	Images     map[string]map[string]string   `json:"images"`
}

type ruutuStreamVariant struct {
	URL             string `json:"url"`
	WithCredentials bool   `json:"withCredentials"`
}

type ruutuSubtitle struct {
	Language string `json:"language"`
	Name     string `json:"name"`
	URL      string `json:"url"`
}

type ruutuMetadata struct {
	ProgramName  string      `json:"programName"`
	Description  string      `json:"description"`
	AgeLimit     *int        `json:"ageLimit"`
	ChannelName  string      `json:"channelName"`
	ChannelID    json.Number `json:"channelId"`
	SeriesName   string      `json:"seriesName"`
	SeriesID     json.Number `json:"seriesId"`
	OnlineRights []struct {
		StartDate string `json:"start_date"`
	} `json:"online_rights"`
}

// Extract implements Extractor.
func (e *RuutuExtractor) Extract(ctx context.Context, rawURL string) (*models.Manifest, error) {
	m := ruutuURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, apperrors.NewNoMatchError(rawURL)
	}
	videoID := m[1]

	var video ruutuVideo
	if err := e.fetcher.GetJSON(ctx, e.apiBase+"/v2/media/"+videoID, nil, &video); err != nil {
		return nil, fmt.Errorf("fetch media JSON for %s: %w", videoID, err)
	}

	playback := video.Clip.Playback
	formats, subtitles := e.extractFormatsAndSubtitles(ctx, videoID, playback.Media)

	if len(formats) == 0 && playback.DRM.Enabled {
		return nil, apperrors.NewDrmProtectedError(videoID)
	}

	md := video.Clip.Metadata
	item := models.MediaItem{
		ID:          videoID,
		Title:       md.ProgramName,
		Description: md.Description,
		Duration:    playback.Runtime,
		Timestamp:   onlineRightsTimestamp(md),
		Chapters:    endCreditsChapters(playback.Runtime, playback.EndCredits),
		Channel:     md.ChannelName,
		ChannelID:   md.ChannelID.String(),
		Series:      md.SeriesName,
		SeriesID:    md.SeriesID.String(),
		Categories:  splitCSV(video.Clip.PassthroughVariables.Themes),
		MediaType:   playback.MediaType,
		Formats:     formats,
		Subtitles:   subtitles,
		Thumbnails:  thumbnail.CollectGrid(playback.Media.Images),
	}

	// Age limit defaults to 0 when the API omits it.
	ageLimit := 0
	if md.AgeLimit != nil {
		ageLimit = *md.AgeLimit
	}
	item.AgeLimit = &ageLimit

	return models.SingleManifest(item), nil
}

// extractFormatsAndSubtitles walks the named stream variants in sorted name
// order. Credential-gated variants are skipped, duplicate URLs are taken
// once (first name wins), and a failed manifest expansion drops only that
// variant.
func (e *RuutuExtractor) extractFormatsAndSubtitles(ctx context.Context, videoID string, media ruutuMedia) ([]models.Format, map[string][]models.SubtitleTrack) {
	logger := config.GetLogger()

	names := make([]string, 0, len(media.StreamURLs))
	for name := range media.StreamURLs {
		names = append(names, name)
	}
	sort.Strings(names)

	var formats []models.Format
	subtitles := make(map[string][]models.SubtitleTrack)
	seenURLs := make(map[string]bool)

	for _, name := range names {
		variant := media.StreamURLs[name]
		if variant == nil || variant.WithCredentials {
			continue
		}
		if variant.URL == "" || seenURLs[variant.URL] {
			continue
		}
		seenURLs[variant.URL] = true

		switch streamVariantKinds[name] {
		case variantHLS:
			hlsFormats, hlsSubs, err := e.expander.ExpandHLS(ctx, variant.URL, videoID)
			if err != nil {
				metrics.StreamExpansionFailuresTotal.WithLabelValues("hls").Inc()
				logger.Debug().Err(err).Str("videoID", videoID).Str("variant", name).Msg("HLS expansion failed, skipping variant")
				continue
			}
			formats = append(formats, hlsFormats...)
			mergeSubtitles(subtitles, hlsSubs)

		case variantDASH:
			dashFormats, err := e.expander.ExpandDASH(ctx, variant.URL, videoID)
			if err != nil {
				metrics.StreamExpansionFailuresTotal.WithLabelValues("dash").Inc()
				logger.Debug().Err(err).Str("videoID", videoID).Str("variant", name).Msg("DASH expansion failed, skipping variant")
				continue
			}
			formats = append(formats, dashFormats...)

		default:
			formats = append(formats, directVariantFormat(name, variant.URL))
		}
	}

	for _, sub := range media.Subtitles {
		if sub.Language == "" || sub.URL == "" {
			continue
		}
		subtitles[sub.Language] = append(subtitles[sub.Language], models.SubtitleTrack{
			URL:  sub.URL,
			Name: sub.Name,
		})
	}

	if len(subtitles) == 0 {
		subtitles = nil
	}
	return formats, subtitles
}

// directVariantFormat builds the default single format for variants that
// carry a plain media URL. The mp3 audio variant gets explicit codec hints;
// the generic http variant is deprioritized because its URL intermittently
// returns 404.
func directVariantFormat(name, url string) models.Format {
	format := models.Format{
		FormatID: name,
		URL:      url,
	}
	switch name {
	case "audioMp3":
		format.ACodec = "mp3"
		format.VCodec = "mp3"
	case "http":
		format.Preference = -1001
	}
	return format
}

func mergeSubtitles(target, src map[string][]models.SubtitleTrack) {
	for lang, tracks := range src {
		target[lang] = append(target[lang], tracks...)
	}
}

// onlineRightsTimestamp picks the earliest online-rights start date.
func onlineRightsTimestamp(md ruutuMetadata) *int64 {
	var values []int64
	for _, rights := range md.OnlineRights {
		if epoch := parseISO8601(rights.StartDate); epoch != nil {
			values = append(values, *epoch)
		}
	}
	return minTimestamp(values)
}

// endCreditsChapters synthesizes the single "End Credits" chapter when both
// the runtime and the credits start offset are known.
func endCreditsChapters(duration, endCreditsStart *float64) []models.Chapter {
	if duration == nil || endCreditsStart == nil {
		return nil
	}
	return []models.Chapter{{
		StartTime: *endCreditsStart,
		EndTime:   *duration,
		Title:     "End Credits",
	}}
}
