package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/naglis/mediaresolver/internal/apperrors"
	"github.com/naglis/mediaresolver/internal/config"
	"github.com/naglis/mediaresolver/internal/fetch"
	"github.com/naglis/mediaresolver/internal/models"
)

const albumShoeboxPage = `<!DOCTYPE html>
<html>
<head><title>Album</title></head>
<body>
<script type="fastboot/shoebox" id="shoebox-api-store">
{
  "album-300": {
    "album": {
      "title": "Dark Drones",
      "description": "Cinematic underscore",
      "image_detail_url": "https://img.example.com/300/detail.jpg",
      "image_large_url": "https://img.example.com/300/large.jpg",
      "image_small_url": "https://img.example.com/300/large.jpg"
    },
    "tracks": [
      {
        "id": 7001,
        "title": "Abyss",
        "artists": [{"name": "A. Composer"}],
        "composers": [{"name": "A. Composer"}, {"name": "B. Writer"}],
        "genres": [{"name": "Ambient"}],
        "keywords": [{"label": "dark"}, {"label": "drone"}],
        "images": {
          "cover": [{"width": 300, "url": "https://img.example.com/t/a.jpg", "webp_url": "https://img.example.com/t/a.webp"}]
        },
        "track_sounds": [
          {
            "id": 91,
            "version": "Full Version",
            "duration": 154.0,
            "assets": {"hls_manifest_url": "https://stream.example.com/91.m3u8"}
          },
          {
            "id": 92,
            "version": "No Drums",
            "duration": 154.0,
            "assets": {"hls_manifest_url": "https://stream.example.com/92.m3u8"}
          }
        ]
      }
    ]
  }
}
</script>
</body>
</html>`

func newExtremeMusicTest(t *testing.T, page string, expander *stubExpander) *ExtremeMusicExtractor {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	t.Cleanup(server.Close)

	fetcher, err := fetch.NewFetcher(&config.Config{ClientTimeout: "5s"})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	t.Cleanup(func() { fetcher.Close() })

	ex := NewExtremeMusic(fetcher, expander)
	ex.pageBase = server.URL
	return ex
}

func TestExtremeMusicMatch(t *testing.T) {
	t.Parallel()
	ex := &ExtremeMusicExtractor{}
	if !ex.Match("https://www.extrememusic.com/albums/6778") {
		t.Error("album URL should match")
	}
	if !ex.Match("http://extrememusic.com/albums/1") {
		t.Error("bare-host album URL should match")
	}
	if ex.Match("https://www.extrememusic.com/playlists/1") {
		t.Error("non-album URL should not match")
	}
	if ex.Match("https://www.extrememusic.com/playlists/1/albums/2") {
		t.Error("album path nested under another section should not match")
	}
	if ex.Match("https://extrememusic.com.evil.example/x/albums/9") {
		t.Error("look-alike host should not match")
	}
	if ex.Match("https://ruutu.fi/video/1") {
		t.Error("foreign URL should not match")
	}
}

func TestExtremeMusicExtractAlbum(t *testing.T) {
	expander := &stubExpander{
		hls: func(manifestURL string) ([]models.Format, map[string][]models.SubtitleTrack, error) {
			return []models.Format{{FormatID: "hls-128", URL: manifestURL}}, nil, nil
		},
	}
	ex := newExtremeMusicTest(t, albumShoeboxPage, expander)

	manifest, err := ex.Extract(context.Background(), "https://www.extrememusic.com/albums/300")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if manifest.Playlist == nil {
		t.Fatal("expected playlist manifest")
	}

	pl := manifest.Playlist
	if pl.ID != "300" || pl.Title != "Dark Drones" {
		t.Errorf("playlist identity = %q/%q", pl.ID, pl.Title)
	}
	if len(pl.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(pl.Entries))
	}

	first, second := pl.Entries[0], pl.Entries[1]
	if first.ID != "7001-91" || second.ID != "7001-92" {
		t.Errorf("entry ids = %q, %q", first.ID, second.ID)
	}
	if first.Title != "Abyss (Full Version)" {
		t.Errorf("first title = %q", first.Title)
	}
	if second.Title != "Abyss (No Drums)" {
		t.Errorf("second title = %q", second.Title)
	}
	if len(first.Formats) != 1 || len(second.Formats) != 1 {
		t.Fatalf("each entry should have its own format: %d, %d", len(first.Formats), len(second.Formats))
	}
	if first.Formats[0].URL == second.Formats[0].URL {
		t.Error("formats were not resolved independently per sound version")
	}

	if len(first.Composers) != 2 || first.Composers[1] != "B. Writer" {
		t.Errorf("composers = %v", first.Composers)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "dark" {
		t.Errorf("tags = %v", first.Tags)
	}
	if len(first.Genres) != 1 || first.Genres[0] != "Ambient" {
		t.Errorf("genres = %v", first.Genres)
	}

	// Track thumbnails come from the sized-variant map.
	if len(first.Thumbnails) != 2 || first.Thumbnails[0].ID != "cover_300" || first.Thumbnails[1].ID != "cover_300_webp" {
		t.Errorf("track thumbnails = %+v", first.Thumbnails)
	}

	// Album falls back to the flat fields; large and small share a URL.
	if len(pl.Thumbnails) != 2 {
		t.Errorf("album thumbnails = %+v", pl.Thumbnails)
	}
}

func TestExtremeMusicMissingAlbumData(t *testing.T) {
	page := `<html><body><script type="fastboot/shoebox" id="shoebox-api-store">{"playlist-1": {}}</script></body></html>`
	ex := newExtremeMusicTest(t, page, &stubExpander{})

	_, err := ex.Extract(context.Background(), "https://www.extrememusic.com/albums/300")
	if !errors.Is(err, &apperrors.ErrMissingData{}) {
		t.Fatalf("expected ErrMissingData, got %v", err)
	}
}

func TestExtremeMusicExpansionFailureDegradesEntry(t *testing.T) {
	expander := &stubExpander{
		hls: func(string) ([]models.Format, map[string][]models.SubtitleTrack, error) {
			return nil, nil, errors.New("manifest fetch failed")
		},
	}
	ex := newExtremeMusicTest(t, albumShoeboxPage, expander)

	manifest, err := ex.Extract(context.Background(), "https://www.extrememusic.com/albums/300")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, entry := range manifest.Playlist.Entries {
		if entry.Playable() {
			t.Errorf("entry %s should be metadata only after expansion failure", entry.ID)
		}
	}
}
