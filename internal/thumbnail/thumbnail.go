// Package thumbnail flattens the image structures returned by site APIs
// into uniform thumbnail lists. Three source shapes exist in the wild: a
// category map with sized variants, a flat trio of fixed-size URL fields,
// and a name/resolution grid.
package thumbnail

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/naglis/mediaresolver/internal/models"
)

// ImageVariant is a single sized rendition inside a category map. WebPURL
// is optional and produces a second thumbnail entry when present.
type ImageVariant struct {
	Width   *int
	URL     string
	WebPURL string
}

// CollectVariants flattens a category map into thumbnails. Each variant
// yields an entry with id "<category>[_<width>]", plus a "_webp" sibling
// when a WebP URL is present. Categories are walked in sorted order so the
// output is deterministic. Variants without a URL still yield an entry with
// an empty URL; callers filter if they cannot tolerate that.
//
// Source variants carry only a width, so the width is encoded in the id and
// the dimension fields are left unset. Thumbnail dimensions are set either
// both or not at all.
func CollectVariants(images map[string][]ImageVariant) []models.Thumbnail {
	if len(images) == 0 {
		return nil
	}

	categories := make([]string, 0, len(images))
	for category := range images {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var thumbnails []models.Thumbnail
	for _, category := range categories {
		for _, variant := range images[category] {
			id := category
			if variant.Width != nil {
				id += "_" + strconv.Itoa(*variant.Width)
			}
			thumbnails = append(thumbnails, models.Thumbnail{
				ID:  id,
				URL: variant.URL,
			})
			if variant.WebPURL != "" {
				thumbnails = append(thumbnails, models.Thumbnail{
					ID:  id + "_webp",
					URL: variant.WebPURL,
				})
			}
		}
	}
	return thumbnails
}

// CollectFlat reads the fixed detail/large/small URL trio, deduplicating by
// exact URL with first occurrence winning.
func CollectFlat(detailURL, largeURL, smallURL string) []models.Thumbnail {
	var thumbnails []models.Thumbnail
	seen := make(map[string]bool)
	for _, entry := range []struct {
		id  string
		url string
	}{
		{"detail", detailURL},
		{"large", largeURL},
		{"small", smallURL},
	} {
		if entry.url == "" || seen[entry.url] {
			continue
		}
		seen[entry.url] = true
		thumbnails = append(thumbnails, models.Thumbnail{ID: entry.id, URL: entry.url})
	}
	return thumbnails
}

// CollectGrid flattens a name -> resolution -> URL grid. Ids take the form
// "<name>_<resolution>"; dimensions are parsed from the resolution key when
// it looks like "640x360". Entries without a URL are skipped.
func CollectGrid(images map[string]map[string]string) []models.Thumbnail {
	if len(images) == 0 {
		return nil
	}

	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Strings(names)

	var thumbnails []models.Thumbnail
	for _, name := range names {
		resolutions := make([]string, 0, len(images[name]))
		for resolution := range images[name] {
			resolutions = append(resolutions, resolution)
		}
		sort.Strings(resolutions)

		for _, resolution := range resolutions {
			url := images[name][resolution]
			if url == "" {
				continue
			}
			thumb := models.Thumbnail{
				ID:  name + "_" + resolution,
				URL: url,
			}
			if w, h, ok := ParseResolution(resolution); ok {
				thumb.Width = &w
				thumb.Height = &h
			}
			thumbnails = append(thumbnails, thumb)
		}
	}
	return thumbnails
}

var resolutionRe = regexp.MustCompile(`(\d+)\s*[xX]\s*(\d+)`)

// ParseResolution extracts dimensions from a "640x360" style string.
func ParseResolution(s string) (width, height int, ok bool) {
	m := resolutionRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	w, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}
