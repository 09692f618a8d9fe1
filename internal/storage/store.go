// Package storage puts uploaded media somewhere a browser can fetch it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"hongdating/internal/config"

	"github.com/google/uuid"
)

// Key prefixes by owner kind.
const (
	PrefixProfiles = "profiles"
	PrefixPosts    = "posts"
	PrefixReports  = "reports"
)

// ErrPresignUnsupported is returned by stores that cannot hand out
// direct-upload URLs.
var ErrPresignUnsupported = errors.New("storage: presigned uploads are not supported by this driver")

// Object describes a stored blob.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store is the object storage the media pipeline writes to.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}

// New builds the store selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return NewLocalStore(cfg.UploadDir, strings.TrimSuffix(cfg.PublicBaseURL, "/")+"/uploads")
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicURL:    cfg.S3PublicURL,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.StorageDriver)
	}
}

// NewKey returns prefix/<owner>/<uuid>.<ext>.
func NewKey(prefix string, ownerID uint, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d/%s.%s", prefix, ownerID, uuid.NewString(), ext)
}

// OwnedBy reports whether key was issued under prefix for ownerID. Keys a
// client sends back after a presigned upload are checked with this.
func OwnedBy(key, prefix string, ownerID uint) bool {
	clean := path.Clean(key)
	if clean != key || strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, fmt.Sprintf("%s/%d/", prefix, ownerID))
}

// ExtForContentType maps the accepted image and attachment types to a
// file extension.
func ExtForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "application/pdf":
		return "pdf"
	default:
		return ""
	}
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
