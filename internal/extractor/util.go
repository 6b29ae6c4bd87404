package extractor

import (
	"strings"
	"time"
)

// iso8601Layouts are tried in order when parsing source timestamps. Sites
// are inconsistent about offsets and granularity.
var iso8601Layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseISO8601 converts an ISO 8601 timestamp to Unix epoch seconds.
// Returns nil for empty or unparseable input; missing timestamps are not
// an extraction error.
func parseISO8601(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			epoch := t.Unix()
			return &epoch
		}
	}
	return nil
}

// joinNonEmpty joins the non-empty parts with a single space.
func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// protoRelativeURL resolves protocol-relative URLs ("//cdn/x.jpg") to https.
func protoRelativeURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		return "https:" + rawURL
	}
	return rawURL
}

// splitCSV splits a comma-separated value list, dropping empty elements.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// minTimestamp returns the earliest of the given epoch values, or nil when
// the list is empty.
func minTimestamp(values []int64) *int64 {
	if len(values) == 0 {
		return nil
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return &min
}
