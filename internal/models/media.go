package models

import "encoding/json"

// Chapter marks a named region inside a media item.
// StartTime must be strictly less than EndTime and chapters never overlap.
type Chapter struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Title     string  `json:"title"`
}

// SubtitleTrack is one downloadable subtitle document for a single language.
type SubtitleTrack struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// MediaItem describes one playable unit resolved from a media page.
// All fields are set by the extractor that produced the item and are not
// mutated afterwards. The ID is derived from source identifiers and is
// reproducible across runs.
type MediaItem struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	AltTitle    string `json:"alt_title,omitempty"`
	DisplayID   string `json:"display_id,omitempty"`
	Description string `json:"description,omitempty"`
	Uploader    string `json:"uploader,omitempty"`

	// Duration is in seconds. Nil means unknown.
	Duration *float64 `json:"duration,omitempty"`

	// Unix epoch seconds. Nil means the source did not provide the value.
	Timestamp         *int64 `json:"timestamp,omitempty"`
	ReleaseTimestamp  *int64 `json:"release_timestamp,omitempty"`
	ModifiedTimestamp *int64 `json:"modified_timestamp,omitempty"`

	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`

	// Formats is empty for metadata-only (unplayable) items.
	Formats []Format `json:"formats,omitempty"`

	// Subtitles maps a language code to the tracks available for it.
	Subtitles map[string][]SubtitleTrack `json:"subtitles,omitempty"`

	Creators  []string `json:"creators,omitempty"`
	Cast      []string `json:"cast,omitempty"`
	Artists   []string `json:"artists,omitempty"`
	Composers []string `json:"composers,omitempty"`

	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Genres     []string `json:"genres,omitempty"`

	Chapters []Chapter `json:"chapters,omitempty"`

	Series       string `json:"series,omitempty"`
	SeriesID     string `json:"series_id,omitempty"`
	SeasonNumber *int   `json:"season_number,omitempty"`

	AgeLimit  *int   `json:"age_limit,omitempty"`
	Channel   string `json:"channel,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// Playable reports whether the item carries at least one fetchable format.
func (m *MediaItem) Playable() bool {
	return len(m.Formats) > 0
}

// Playlist is an ordered collection of media items resolved from a single
// source page. Entry order follows source enumeration order.
type Playlist struct {
	ID          string      `json:"id"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Thumbnails  []Thumbnail `json:"thumbnails,omitempty"`
	Entries     []MediaItem `json:"entries"`
}

// Manifest is the final result of resolving a URL: either a single media
// item or a playlist. Exactly one of Item and Playlist is non-nil.
type Manifest struct {
	Item     *MediaItem
	Playlist *Playlist
}

// SingleManifest wraps one media item as a manifest.
func SingleManifest(item MediaItem) *Manifest {
	return &Manifest{Item: &item}
}

// PlaylistManifest wraps a playlist as a manifest.
func PlaylistManifest(pl Playlist) *Manifest {
	return &Manifest{Playlist: &pl}
}

// ID returns the identifier of the wrapped item or playlist.
func (m *Manifest) ID() string {
	if m.Item != nil {
		return m.Item.ID
	}
	if m.Playlist != nil {
		return m.Playlist.ID
	}
	return ""
}

// MarshalJSON emits the wrapped value directly. Playlists carry a "_type"
// discriminator so downstream consumers can tell the two shapes apart.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	if m.Item != nil {
		return json.Marshal(m.Item)
	}
	return json.Marshal(struct {
		Type string `json:"_type"`
		*Playlist
	}{Type: "playlist", Playlist: m.Playlist})
}
