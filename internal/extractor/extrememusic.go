package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/naglis/mediaresolver/internal/apperrors"
	"github.com/naglis/mediaresolver/internal/fetch"
	"github.com/naglis/mediaresolver/internal/models"
	"github.com/naglis/mediaresolver/internal/streams"
	"github.com/naglis/mediaresolver/internal/thumbnail"
)

const extremeMusicPageBase = "https://www.extrememusic.com"

// soundExpandWorkers caps concurrent manifest expansions per album.
const soundExpandWorkers = 4

var extremeMusicURLRe = regexp.MustCompile(`(?i)^https?://(?:www\.)?extrememusic\.com/albums/(\d+)`)

// ExtremeMusicExtractor resolves production-music album pages. Album data
// is embedded in the page as a shoebox JSON blob; every track carries one
// or more sound versions, each of which becomes its own entry.
type ExtremeMusicExtractor struct {
	fetcher  fetch.Fetcher
	expander streams.Expander
	pageBase string
}

// NewExtremeMusic creates the album-site extractor.
func NewExtremeMusic(f fetch.Fetcher, e streams.Expander) *ExtremeMusicExtractor {
	return &ExtremeMusicExtractor{fetcher: f, expander: e, pageBase: extremeMusicPageBase}
}

// Name implements Extractor.
func (e *ExtremeMusicExtractor) Name() string { return "extrememusic" }

// Match implements Extractor.
func (e *ExtremeMusicExtractor) Match(rawURL string) bool {
	return extremeMusicURLRe.MatchString(rawURL)
}

type albumPayload struct {
	Album  albumInfo    `json:"album"`
	Tracks []albumTrack `json:"tracks"`
}

type albumInfo struct {
	Title          string                         `json:"title"`
	Description    string                         `json:"description"`
	Images         map[string][]albumImageVariant `json:"images"`
	ImageDetailURL string                         `json:"image_detail_url"`
	ImageLargeURL  string                         `json:"image_large_url"`
	ImageSmallURL  string                         `json:"image_small_url"`
}

type albumImageVariant struct {
	Width *int   `json:"width"`
	URL   string `json:"url"`
	WebP  string `json:"webp_url"`
}

type albumTrack struct {
	ID             int64                          `json:"id"`
	Title          string                         `json:"title"`
	Description    string                         `json:"description"`
	Artists        []namedRef                     `json:"artists"`
	Composers      []namedRef                     `json:"composers"`
	Genres         []namedRef                     `json:"genres"`
	Keywords       []labeledRef                   `json:"keywords"`
	Images         map[string][]albumImageVariant `json:"images"`
	ImageDetailURL string                         `json:"image_detail_url"`
	ImageLargeURL  string                         `json:"image_large_url"`
	ImageSmallURL  string                         `json:"image_small_url"`
	Sounds         []trackSound                   `json:"track_sounds"`
}

type namedRef struct {
	Name string `json:"name"`
}

type labeledRef struct {
	Label string `json:"label"`
}

type trackSound struct {
	ID       int64       `json:"id"`
	Version  string      `json:"version"`
	Duration *float64    `json:"duration"`
	Assets   soundAssets `json:"assets"`
}

type soundAssets struct {
	AudioURL string `json:"audio_url"`
	DASHURL  string `json:"dash_manifest_url"`
	HLSURL   string `json:"hls_manifest_url"`
}

// Extract implements Extractor.
func (e *ExtremeMusicExtractor) Extract(ctx context.Context, rawURL string) (*models.Manifest, error) {
	m := extremeMusicURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, apperrors.NewNoMatchError(rawURL)
	}
	albumID := m[1]

	page, err := e.fetcher.GetPage(ctx, e.pageBase+"/albums/"+albumID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch album page %s: %w", albumID, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse album page %s: %w", albumID, err)
	}

	payload, err := findAlbumPayload(doc, albumID)
	if err != nil {
		return nil, err
	}

	description := payload.Album.Description
	if description == "" {
		description, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	entries := e.expandAlbumEntries(ctx, payload.Tracks)

	return assemble(models.Playlist{
		ID:          albumID,
		Title:       payload.Album.Title,
		Description: description,
		Thumbnails:  collectAlbumThumbnails(payload.Album.Images, payload.Album.ImageDetailURL, payload.Album.ImageLargeURL, payload.Album.ImageSmallURL),
		Entries:     entries,
	}), nil
}

// findAlbumPayload scans the page's shoebox script blobs for a JSON object
// containing a key with the "album-" prefix.
func findAlbumPayload(doc *goquery.Document, albumID string) (*albumPayload, error) {
	var payload *albumPayload
	doc.Find(`script[type="fastboot/shoebox"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var blob map[string]json.RawMessage
		if err := json.Unmarshal([]byte(s.Text()), &blob); err != nil {
			return true
		}
		for key, raw := range blob {
			if !strings.HasPrefix(key, "album-") {
				continue
			}
			var p albumPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				continue
			}
			payload = &p
			return false
		}
		return true
	})

	if payload == nil {
		return nil, apperrors.NewMissingDataError(albumID, "album data")
	}
	return payload, nil
}

type soundEntry struct {
	index int
	item  models.MediaItem
	asset assetURLs
}

// expandAlbumEntries builds one entry per track sound version. Manifest
// expansion runs on a small worker pool; results are placed by index so the
// output keeps source track and version order.
func (e *ExtremeMusicExtractor) expandAlbumEntries(ctx context.Context, tracks []albumTrack) []models.MediaItem {
	var pending []soundEntry
	for _, track := range tracks {
		thumbnails := collectAlbumThumbnails(track.Images, track.ImageDetailURL, track.ImageLargeURL, track.ImageSmallURL)
		for _, sound := range track.Sounds {
			item := models.MediaItem{
				ID:          fmt.Sprintf("%d-%d", track.ID, sound.ID),
				Title:       soundTitle(track.Title, sound.Version),
				Description: track.Description,
				Duration:    sound.Duration,
				Thumbnails:  thumbnails,
				Artists:     projectNames(track.Artists),
				Composers:   projectNames(track.Composers),
				Genres:      projectNames(track.Genres),
				Tags:        projectLabels(track.Keywords),
			}
			pending = append(pending, soundEntry{
				index: len(pending),
				item:  item,
				asset: assetURLs{
					Progressive: sound.Assets.AudioURL,
					DASH:        sound.Assets.DASHURL,
					HLS:         sound.Assets.HLSURL,
				},
			})
		}
	}
	if len(pending) == 0 {
		return nil
	}

	entries := make([]models.MediaItem, len(pending))
	var wg sync.WaitGroup
	sem := make(chan struct{}, soundExpandWorkers)
	for _, job := range pending {
		wg.Add(1)
		go func(job soundEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			job.item.Formats = expandAsset(ctx, e.expander, job.asset, job.item.ID)
			entries[job.index] = job.item
		}(job)
	}
	wg.Wait()
	return entries
}

func soundTitle(trackTitle, version string) string {
	if version == "" {
		return trackTitle
	}
	return joinNonEmpty(trackTitle, "("+version+")")
}

// collectAlbumThumbnails tries the sized-variant map first and falls back
// to the flat detail/large/small fields.
func collectAlbumThumbnails(images map[string][]albumImageVariant, detailURL, largeURL, smallURL string) []models.Thumbnail {
	converted := make(map[string][]thumbnail.ImageVariant, len(images))
	for category, variants := range images {
		for _, v := range variants {
			converted[category] = append(converted[category], thumbnail.ImageVariant{
				Width:   v.Width,
				URL:     v.URL,
				WebPURL: v.WebP,
			})
		}
	}
	if thumbnails := thumbnail.CollectVariants(converted); len(thumbnails) > 0 {
		return thumbnails
	}
	return thumbnail.CollectFlat(detailURL, largeURL, smallURL)
}

func projectNames(refs []namedRef) []string {
	var out []string
	for _, r := range refs {
		if r.Name != "" {
			out = append(out, r.Name)
		}
	}
	return out
}

func projectLabels(refs []labeledRef) []string {
	var out []string
	for _, r := range refs {
		if r.Label != "" {
			out = append(out, r.Label)
		}
	}
	return out
}
