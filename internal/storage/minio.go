package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/picload/picload/internal/models"
)

// ErrUnsupportedFormat is returned by Store for encodings outside the allow-list.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// accepted raster encodings, keyed by content type
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
}

var allowedExts = map[string]string{
	".jpeg": ".jpg",
	".jpg":  ".jpg",
	".png":  ".png",
}

// MinIOStorage is a thin wrapper around the minio client used by services.
// Object keys carry the /upload path marker so stored URLs can be
// rewritten into resized renditions.
type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	folder     string
	publicBase string
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(cfg *MinIOConfig) (*MinIOStorage, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket, folder: cfg.Folder, publicBase: strings.TrimRight(base, "/")}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Store uploads one image and returns its durable reference. The key is
// random; the original name only contributes its extension as a fallback
// when the content type is missing.
func (s *MinIOStorage) Store(ctx context.Context, reader io.Reader, size int64, contentType, originalName string) (models.ImageRef, error) {
	ext, err := extFor(contentType, originalName)
	if err != nil {
		return models.ImageRef{}, err
	}
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return models.ImageRef{}, err
	}
	key := objectKey(s.folder, hex.EncodeToString(b)+ext)
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return models.ImageRef{}, fmt.Errorf("minio put: %w", err)
	}
	return models.ImageRef{URL: s.urlFor(key), Filename: key}, nil
}

// Delete removes the object for the given filename. Deleting an absent
// key is not an error (idempotent delete-by-key).
func (s *MinIOStorage) Delete(ctx context.Context, filename string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, filename, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove: %w", err)
	}
	return nil
}

func (s *MinIOStorage) urlFor(key string) string {
	return s.publicBase + "/" + s.bucket + "/" + key
}

func objectKey(folder, name string) string {
	return path.Join("upload", "v1", folder, name)
}

func extFor(contentType, originalName string) (string, error) {
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if ext, ok := allowedTypes[strings.ToLower(strings.TrimSpace(ct))]; ok {
		return ext, nil
	}
	if ext, ok := allowedExts[strings.ToLower(path.Ext(originalName))]; ok {
		return ext, nil
	}
	return "", ErrUnsupportedFormat
}
