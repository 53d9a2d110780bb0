package models

import "testing"

func TestThumbnailInsertsTransformToken(t *testing.T) {
	r := ImageRef{URL: "https://assets.example.com/pl/upload/v1/picupload/xyz.jpg", Filename: "upload/v1/picupload/xyz.jpg"}
	got := r.Thumbnail()
	want := "https://assets.example.com/pl/upload/w_150/v1/picupload/xyz.jpg"
	if got != want {
		t.Fatalf("Thumbnail() = %q, want %q", got, want)
	}
}

func TestPreviewInsertsTransformToken(t *testing.T) {
	r := ImageRef{URL: "https://assets.example.com/pl/upload/v1/picupload/xyz.jpg"}
	got := r.Preview()
	want := "https://assets.example.com/pl/upload/w_300,h_300/v1/picupload/xyz.jpg"
	if got != want {
		t.Fatalf("Preview() = %q, want %q", got, want)
	}
}

// Only the first marker occurrence is rewritten.
func TestThumbnailReplacesFirstMarkerOnly(t *testing.T) {
	r := ImageRef{URL: "https://h/upload/v1/upload/a.png"}
	got := r.Thumbnail()
	want := "https://h/upload/w_150/v1/upload/a.png"
	if got != want {
		t.Fatalf("Thumbnail() = %q, want %q", got, want)
	}
}

func TestTransformsNoopWithoutMarker(t *testing.T) {
	r := ImageRef{URL: "https://h/files/a.png"}
	if got := r.Thumbnail(); got != r.URL {
		t.Fatalf("Thumbnail() = %q, want unchanged %q", got, r.URL)
	}
	if got := r.Preview(); got != r.URL {
		t.Fatalf("Preview() = %q, want unchanged %q", got, r.URL)
	}
}
