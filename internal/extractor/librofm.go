package extractor

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/naglis/mediaresolver/internal/apperrors"
	"github.com/naglis/mediaresolver/internal/auth"
	"github.com/naglis/mediaresolver/internal/fetch"
	"github.com/naglis/mediaresolver/internal/models"
)

const (
	libroFMBase     = "https://libro.fm"
	LibroFMLoginURL = libroFMBase + "/oauth/token"

	// LibroFMUserAgent is the mobile client identity the API expects on
	// login and metadata calls.
	LibroFMUserAgent = "okhttp/3.14.9"

	// libroFMDownloadUserAgent is attached to part downloads; the CDN
	// serves the archive only to the platform download manager.
	libroFMDownloadUserAgent = "AndroidDownloadManager/11 (Linux; U; Android 11; " +
		"Android SDK built for x86_64 Build/RSR1.210722.013.A2)"

	libroFMClientVersion = "Android: Libro.fm 7.6.1 Build: 194 Device: Android SDK built for x86_64 " +
		"(unknown sdk_phone_x86_64) AndroidOS: 11 SDK: 30"
)

var libroFMURLRe = regexp.MustCompile(`(?i)^https?://(?:www\.)?libro\.fm/audiobooks/([0-9]{13})(?:-([a-z0-9-]+))?`)

// LibroFMExtractor resolves purchased audiobooks. All API calls require a
// bearer-token session; each audiobook downloads as one or more zip
// archives of mp3 files.
type LibroFMExtractor struct {
	fetcher fetch.Fetcher
	session *auth.Session
	apiBase string
}

// NewLibroFM creates the audiobook-site extractor. The session may be nil,
// in which case every extraction fails with an authentication-required
// error.
func NewLibroFM(f fetch.Fetcher, session *auth.Session) *LibroFMExtractor {
	return &LibroFMExtractor{fetcher: f, session: session, apiBase: libroFMBase}
}

// Name implements Extractor.
func (e *LibroFMExtractor) Name() string { return "librofm" }

// Match implements Extractor.
func (e *LibroFMExtractor) Match(rawURL string) bool {
	return libroFMURLRe.MatchString(rawURL)
}

type libroDetails struct {
	Data struct {
		Audiobook *libroAudiobook `json:"audiobook"`
	} `json:"data"`
}

type libroAudiobook struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	Description     string `json:"description"`
	Publisher       string `json:"publisher"`
	CoverURL        string `json:"cover_url"`
	CreatedAt       string `json:"created_at"`
	PublicationDate string `json:"publication_date"`
	UpdatedAt       string `json:"updated_at"`
	Series          string `json:"series"`
	SeriesNum       *int   `json:"series_num"`

	Authors []string     `json:"authors"`
	Genres  []libroGenre `json:"genres"`

	AudiobookInfo struct {
		Duration  *float64 `json:"duration"`
		Narrators []string `json:"narrators"`
	} `json:"audiobook_info"`
}

type libroDownloadManifest struct {
	Parts []libroPart `json:"parts"`
}

type libroPart struct {
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

// Extract implements Extractor.
func (e *LibroFMExtractor) Extract(ctx context.Context, rawURL string) (*models.Manifest, error) {
	m := libroFMURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, apperrors.NewNoMatchError(rawURL)
	}
	isbn, displayID := m[1], m[2]

	if e.session == nil {
		return nil, apperrors.NewAuthRequiredError(isbn,
			`log in with your account credentials, or pass "__token__" as the username together with an access token`)
	}

	apiHeaders := map[string]string{
		"Authorization": e.session.AuthorizationHeader(),
		"User-Agent":    LibroFMUserAgent,
	}

	var details libroDetails
	if err := e.fetcher.GetJSON(ctx, e.apiBase+"/api/v7/explore/audiobook_details/"+isbn,
		&fetch.Options{Headers: apiHeaders}, &details); err != nil {
		return nil, fmt.Errorf("fetch audiobook details for %s: %w", isbn, err)
	}

	book := details.Data.Audiobook
	if book == nil {
		return nil, apperrors.NewMissingDataError(isbn, "audiobook data")
	}
	if book.Title == "" {
		return nil, apperrors.NewMissingDataError(isbn, "audiobook title")
	}

	base := models.MediaItem{
		ID:                isbn,
		Title:             book.Title,
		AltTitle:          book.Subtitle,
		DisplayID:         displayID,
		Description:       book.Description,
		Uploader:          book.Publisher,
		Creators:          book.Authors,
		Cast:              book.AudiobookInfo.Narrators,
		Duration:          book.AudiobookInfo.Duration,
		Timestamp:         parseISO8601(book.CreatedAt),
		ReleaseTimestamp:  parseISO8601(book.PublicationDate),
		ModifiedTimestamp: parseISO8601(book.UpdatedAt),
		Categories:        projectGenreNames(book.Genres),
		Thumbnails:        coverThumbnails(book.CoverURL),
	}
	if book.Series != "" {
		base.Series = book.Series
		base.SeasonNumber = book.SeriesNum
	}

	var manifest libroDownloadManifest
	if err := e.fetcher.GetJSON(ctx, e.apiBase+"/api/v9/download-manifest", &fetch.Options{
		Headers: apiHeaders,
		Query: url.Values{
			"isbn":           {isbn},
			"client_version": {libroFMClientVersion},
		},
	}, &manifest); err != nil {
		return nil, fmt.Errorf("fetch download manifest for %s: %w", isbn, err)
	}
	if len(manifest.Parts) == 0 {
		return nil, apperrors.NewMissingDataError(isbn, "download manifest parts")
	}

	entries := make([]models.MediaItem, 0, len(manifest.Parts))
	for i, part := range manifest.Parts {
		n := i + 1
		item := base
		item.ID = fmt.Sprintf("%s-%d", isbn, n)
		item.Title = joinNonEmpty(base.Title, fmt.Sprintf("(Part %d)", n))
		item.Formats = []models.Format{partFormat(part)}
		entries = append(entries, item)
	}

	return assemble(models.Playlist{
		ID:          isbn,
		Title:       base.Title,
		Description: base.Description,
		Thumbnails:  base.Thumbnails,
		Entries:     entries,
	}), nil
}

// partFormat describes one downloadable archive. Parts are zip archives of
// mp3 files rather than a single media stream.
func partFormat(part libroPart) models.Format {
	format := models.Format{
		URL:    part.URL,
		VCodec: models.VCodecNone,
		Note:   "zip archive of mp3 files",
		HTTPHeaders: map[string]string{
			"User-Agent": libroFMDownloadUserAgent,
		},
	}
	if part.SizeBytes > 0 {
		size := part.SizeBytes
		format.Filesize = &size
	}
	return format
}

func coverThumbnails(coverURL string) []models.Thumbnail {
	if coverURL == "" {
		return nil
	}
	return []models.Thumbnail{{ID: "cover", URL: protoRelativeURL(coverURL)}}
}

type libroGenre struct {
	Name string `json:"name"`
}

func projectGenreNames(genres []libroGenre) []string {
	var out []string
	for _, g := range genres {
		if g.Name != "" {
			out = append(out, g.Name)
		}
	}
	return out
}
