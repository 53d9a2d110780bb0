package storage

import (
	"strings"
	"testing"
)

func TestExtForContentTypes(t *testing.T) {
	cases := []struct {
		ct, name, want string
	}{
		{"image/jpeg", "photo.bin", ".jpg"},
		{"image/png", "photo", ".png"},
		{"image/jpeg; charset=binary", "x", ".jpg"},
		{"", "holiday.JPEG", ".jpg"},
		{"", "holiday.png", ".png"},
		{"application/octet-stream", "pic.jpg", ".jpg"},
	}
	for _, c := range cases {
		got, err := extFor(c.ct, c.name)
		if err != nil {
			t.Fatalf("extFor(%q, %q) error: %v", c.ct, c.name, err)
		}
		if got != c.want {
			t.Fatalf("extFor(%q, %q) = %q, want %q", c.ct, c.name, got, c.want)
		}
	}
}

func TestExtForRejectsOtherFormats(t *testing.T) {
	for _, c := range []struct{ ct, name string }{
		{"image/gif", "anim.gif"},
		{"application/pdf", "doc.pdf"},
		{"", "noext"},
	} {
		if _, err := extFor(c.ct, c.name); err != ErrUnsupportedFormat {
			t.Fatalf("extFor(%q, %q): expected ErrUnsupportedFormat, got %v", c.ct, c.name, err)
		}
	}
}

func TestObjectKeyCarriesUploadMarker(t *testing.T) {
	key := objectKey("picupload", "abc123.jpg")
	if key != "upload/v1/picupload/abc123.jpg" {
		t.Fatalf("unexpected key: %q", key)
	}
	if !strings.HasPrefix("/"+key, "/upload/") {
		t.Fatalf("key missing /upload marker: %q", key)
	}
}
