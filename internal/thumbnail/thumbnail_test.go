package thumbnail

import (
	"reflect"
	"testing"

	"github.com/naglis/mediaresolver/internal/models"
)

func intPtr(v int) *int { return &v }

func TestCollectVariants(t *testing.T) {
	t.Parallel()

	images := map[string][]ImageVariant{
		"cover": {
			{Width: intPtr(300), URL: "https://x/a.jpg", WebPURL: "https://x/a.webp"},
		},
	}

	got := CollectVariants(images)
	want := []models.Thumbnail{
		{ID: "cover_300", URL: "https://x/a.jpg"},
		{ID: "cover_300_webp", URL: "https://x/a.webp"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectVariants = %+v, want %+v", got, want)
	}
}

func TestCollectVariantsDimensionsBothOrNeither(t *testing.T) {
	t.Parallel()

	// The source map only knows widths, so emitted thumbnails must not carry
	// a width without a height.
	got := CollectVariants(map[string][]ImageVariant{
		"cover":  {{Width: intPtr(300), URL: "https://x/a.jpg", WebPURL: "https://x/a.webp"}},
		"banner": {{URL: "https://x/b.jpg"}},
	})
	for _, thumb := range got {
		if (thumb.Width == nil) != (thumb.Height == nil) {
			t.Errorf("thumbnail %q has width=%v height=%v; want both set or both nil",
				thumb.ID, thumb.Width, thumb.Height)
		}
	}
}

func TestCollectVariantsNoWidth(t *testing.T) {
	t.Parallel()

	got := CollectVariants(map[string][]ImageVariant{
		"banner": {{URL: "https://x/b.jpg"}},
	})
	if len(got) != 1 || got[0].ID != "banner" {
		t.Fatalf("expected single thumbnail with id %q, got %+v", "banner", got)
	}
}

func TestCollectVariantsKeepsURLLessEntries(t *testing.T) {
	t.Parallel()

	got := CollectVariants(map[string][]ImageVariant{
		"cover": {{Width: intPtr(600)}},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 thumbnail, got %d", len(got))
	}
	if got[0].ID != "cover_600" || got[0].URL != "" {
		t.Errorf("unexpected thumbnail: %+v", got[0])
	}
}

func TestCollectVariantsDeterministicOrder(t *testing.T) {
	t.Parallel()

	images := map[string][]ImageVariant{
		"small": {{URL: "https://x/s.jpg"}},
		"cover": {{URL: "https://x/c.jpg"}},
		"large": {{URL: "https://x/l.jpg"}},
	}
	got := CollectVariants(images)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	want := []string{"cover", "large", "small"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("category order = %v, want %v", ids, want)
	}
}

func TestCollectFlatDedupByURL(t *testing.T) {
	t.Parallel()

	got := CollectFlat("", "https://x/l.jpg", "https://x/l.jpg")
	if len(got) != 1 {
		t.Fatalf("expected 1 thumbnail after dedup, got %d", len(got))
	}
	if got[0].ID != "large" || got[0].URL != "https://x/l.jpg" {
		t.Errorf("unexpected thumbnail: %+v", got[0])
	}
}

func TestCollectFlatAllDistinct(t *testing.T) {
	t.Parallel()

	got := CollectFlat("https://x/d.jpg", "https://x/l.jpg", "https://x/s.jpg")
	if len(got) != 3 {
		t.Fatalf("expected 3 thumbnails, got %d", len(got))
	}
	if got[0].ID != "detail" || got[1].ID != "large" || got[2].ID != "small" {
		t.Errorf("unexpected ids: %+v", got)
	}
}

func TestCollectGrid(t *testing.T) {
	t.Parallel()

	got := CollectGrid(map[string]map[string]string{
		"presentation": {
			"640x360": "https://x/p.jpg",
			"":        "",
		},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 thumbnail, got %d", len(got))
	}
	thumb := got[0]
	if thumb.ID != "presentation_640x360" {
		t.Errorf("id = %q", thumb.ID)
	}
	if thumb.Width == nil || thumb.Height == nil || *thumb.Width != 640 || *thumb.Height != 360 {
		t.Errorf("dimensions not parsed: %+v", thumb)
	}
}

func TestParseResolution(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		width  int
		height int
		ok     bool
	}{
		{"640x360", 640, 360, true},
		{"1920X1080", 1920, 1080, true},
		{"square", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		tt := tt
		w, h, ok := ParseResolution(tt.in)
		if ok != tt.ok || w != tt.width || h != tt.height {
			t.Errorf("ParseResolution(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.in, w, h, ok, tt.width, tt.height, tt.ok)
		}
	}
}
