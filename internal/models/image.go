package models

import "strings"

// ImageRef points at one object held in the remote asset store.
// Both fields are immutable once created; Filename is the store's key.
type ImageRef struct {
	URL      string `bson:"url" json:"url"`
	Filename string `bson:"filename" json:"filename"`
}

// uploadMarker is the path segment after which the store accepts a
// transform token for resized renditions.
const uploadMarker = "/upload"

const (
	thumbnailToken = "/upload/w_150"
	previewToken   = "/upload/w_300,h_300"
)

// Thumbnail returns the URL of a 150px-wide square rendition.
// When the URL carries no upload marker the original URL is returned.
func (r ImageRef) Thumbnail() string {
	return strings.Replace(r.URL, uploadMarker, thumbnailToken, 1)
}

// Preview returns the URL of a 300x300 rendition. No-op without marker.
func (r ImageRef) Preview() string {
	return strings.Replace(r.URL, uploadMarker, previewToken, 1)
}
