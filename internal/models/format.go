package models

// VCodecNone marks a format as audio-only.
const VCodecNone = "none"

// Format is one concrete, fetchable representation of a media stream.
type Format struct {
	FormatID string `json:"format_id,omitempty"`
	URL      string `json:"url"`

	// VCodec and ACodec are codec hints. VCodec == "none" denotes an
	// audio-only format.
	VCodec string `json:"vcodec,omitempty"`
	ACodec string `json:"acodec,omitempty"`

	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`

	// Bitrate is in bits per second.
	Bitrate  *int64 `json:"bitrate,omitempty"`
	Filesize *int64 `json:"filesize,omitempty"`

	// HTTPHeaders are extra request headers the downloader must send when
	// fetching this format.
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`

	// Preference biases format selection. Lower values are picked last;
	// strongly negative values mark formats known to be unreliable.
	Preference int `json:"preference,omitempty"`

	// Note is a free-form description of the format (e.g. archive contents).
	Note string `json:"note,omitempty"`
}

// AudioOnly reports whether the format carries no video stream.
func (f *Format) AudioOnly() bool {
	return f.VCodec == VCodecNone
}
