package models

// Thumbnail is one preview image variant for a media item or playlist.
// Width and Height are either both set or both nil.
type Thumbnail struct {
	ID     string `json:"id"`
	URL    string `json:"url,omitempty"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}
