// Package streams turns raw streaming-manifest URLs into playable format
// lists. It contains the site-specific URL normalization rules and the
// HLS/DASH manifest expansion built on top of them.
package streams

import (
	"regexp"
	"strings"
)

// hlsCanonicalRe matches manifest paths that already follow the site's
// canonical per-rendition layout, e.g. ".../HLS/128_v4.m3u8".
var hlsCanonicalRe = regexp.MustCompile(`/HLS/\d+(?:_v\d)?\.m3u8$`)

// NormalizeHLS rewrites an HLS manifest URL into the canonical per-site
// manifest path. Returns false when the URL does not end in ".m3u8"
// (optionally followed by a query string). URLs already in canonical form
// are returned unchanged, which makes the function idempotent.
//
// The rewrite mirrors the site's own URL construction and is an exact-match
// contract: any deviation breaks playback.
func NormalizeHLS(rawURL string) (string, bool) {
	path, query := splitQuery(rawURL)
	if !strings.HasSuffix(path, ".m3u8") {
		return "", false
	}
	if hlsCanonicalRe.MatchString(path) {
		return rawURL, true
	}
	normalized := strings.TrimSuffix(path, ".m3u8") + "/HLS/128_v4.m3u8"
	return normalized + query, true
}

// NormalizeDASH rewrites a DASH manifest URL into the canonical per-site
// manifest path. Returns false when the URL does not end in ".mpd"
// (optionally followed by a query string). URLs already ending in
// "/DASH.mpd" are returned unchanged; otherwise the trailing path segment
// is replaced with "DASH.mpd". The query string is preserved.
func NormalizeDASH(rawURL string) (string, bool) {
	path, query := splitQuery(rawURL)
	if !strings.HasSuffix(path, ".mpd") {
		return "", false
	}
	if strings.HasSuffix(path, "/DASH.mpd") {
		return rawURL, true
	}
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", false
	}
	return path[:idx] + "/DASH.mpd" + query, true
}

// splitQuery splits a URL at the first "?", keeping the "?" with the query.
func splitQuery(rawURL string) (path, query string) {
	if idx := strings.Index(rawURL, "?"); idx >= 0 {
		return rawURL[:idx], rawURL[idx:]
	}
	return rawURL, ""
}
