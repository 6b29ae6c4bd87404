package streams

import "strings"

// videoCodecPrefixes and audioCodecPrefixes classify RFC 6381 codec strings
// as found in HLS CODECS attributes and DASH @codecs.
var (
	videoCodecPrefixes = []string{"avc1", "avc3", "hvc1", "hev1", "vp08", "vp09", "vp9", "av01", "dvh1", "dvhe"}
	audioCodecPrefixes = []string{"mp4a", "ac-3", "ec-3", "opus", "vorbis", "flac", "alac"}
)

// splitCodecs classifies a comma-separated codecs attribute into video and
// audio codec hints. When the attribute names only an audio codec, the video
// codec is reported as "none" (audio-only stream).
func splitCodecs(codecs string) (vcodec, acodec string) {
	for _, c := range strings.Split(codecs, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		switch {
		case hasAnyPrefix(c, videoCodecPrefixes):
			if vcodec == "" {
				vcodec = c
			}
		case hasAnyPrefix(c, audioCodecPrefixes):
			if acodec == "" {
				acodec = c
			}
		}
	}
	if vcodec == "" && acodec != "" {
		vcodec = "none"
	}
	return vcodec, acodec
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
