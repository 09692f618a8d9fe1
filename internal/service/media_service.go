package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"hongdating/internal/config"
	"hongdating/internal/middleware"
	"hongdating/internal/models"
	"hongdating/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	AttachmentMaxSizeMB         = 5
	ImageMaxDimension           = 1080
	WebPQuality                 = 75
	presignTTL                  = 15 * time.Minute
)

// PresignedUpload is handed to clients that upload straight to the bucket.
type PresignedUpload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MediaService validates, normalizes and stores uploaded images and
// attachments.
type MediaService struct {
	store              storage.Store
	maxImageBytes      int64
	maxAttachmentBytes int64
}

func NewMediaService(store storage.Store, cfg *config.Config) *MediaService {
	maxMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxMB = cfg.ImageMaxUploadSizeMB
	}
	return &MediaService{
		store:              store,
		maxImageBytes:      int64(maxMB) * 1024 * 1024,
		maxAttachmentBytes: AttachmentMaxSizeMB * 1024 * 1024,
	}
}

// URL resolves a stored key to its public address.
func (s *MediaService) URL(key string) string {
	return s.store.URL(key)
}

// StoreImage decodes content, scales it to fit ImageMaxDimension and writes
// it as webp under prefix. With keepGIF an animated GIF is stored untouched,
// since re-encoding would keep only the first frame.
func (s *MediaService) StoreImage(ctx context.Context, ownerID uint, prefix, declaredType string, content []byte, keepGIF bool) (storage.Object, error) {
	if len(content) == 0 {
		return storage.Object{}, models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxImageBytes {
		return storage.Object{}, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxImageBytes/(1024*1024)))
	}

	detected := http.DetectContentType(content)
	if !isAllowedImageMIME(detected) {
		return storage.Object{}, models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(declaredType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, detected) {
		return storage.Object{}, models.NewValidationError("Image content type mismatch")
	}

	if keepGIF && normalizeContentType(detected) == "image/gif" {
		key := storage.NewKey(prefix, ownerID, "gif")
		return s.put(ctx, key, "image/gif", content)
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return storage.Object{}, models.NewValidationError("Invalid image file")
	}
	encoded, err := encodeWebP(resizeToFit(decoded, ImageMaxDimension, ImageMaxDimension), WebPQuality)
	if err != nil {
		return storage.Object{}, models.NewInternalError(err)
	}
	return s.put(ctx, storage.NewKey(prefix, ownerID, "webp"), "image/webp", encoded)
}

// StoreAttachment writes a report or complaint attachment as uploaded.
// Images and PDFs are accepted.
func (s *MediaService) StoreAttachment(ctx context.Context, ownerID uint, content []byte) (storage.Object, error) {
	if len(content) == 0 {
		return storage.Object{}, models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxAttachmentBytes {
		return storage.Object{}, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", AttachmentMaxSizeMB))
	}
	detected := normalizeContentType(http.DetectContentType(content))
	if !isAllowedImageMIME(detected) && detected != "application/pdf" {
		return storage.Object{}, models.NewValidationError("Attachments must be an image or a PDF")
	}
	key := storage.NewKey(storage.PrefixReports, ownerID, storage.ExtForContentType(detected))
	return s.put(ctx, key, detected, content)
}

// PresignImage reserves a key under prefix for a direct upload.
func (s *MediaService) PresignImage(ctx context.Context, ownerID uint, prefix, contentType string) (*PresignedUpload, error) {
	ct := normalizeContentType(contentType)
	if !isAllowedImageMIME(ct) {
		return nil, models.NewValidationError("content_type must be jpeg, png, gif or webp")
	}
	key := storage.NewKey(prefix, ownerID, storage.ExtForContentType(ct))
	uploadURL, err := s.store.PresignPut(ctx, key, ct, presignTTL)
	if errors.Is(err, storage.ErrPresignUnsupported) {
		return nil, models.NewValidationError("Direct uploads are not available; upload the file instead")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &PresignedUpload{
		Key:       key,
		UploadURL: uploadURL,
		URL:       s.store.URL(key),
		ExpiresAt: time.Now().UTC().Add(presignTTL),
	}, nil
}

// Remove deletes key. Failures are logged; the object is orphaned at worst.
func (s *MediaService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "delete stored object failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *MediaService) put(ctx context.Context, key, contentType string, data []byte) (storage.Object, error) {
	obj, err := s.store.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return storage.Object{}, models.NewInternalError(err)
	}
	return obj, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}
