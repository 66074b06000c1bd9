// Package upload provides the image upload collaborators: local disk and
// MinIO/S3 object storage. Both run the transfer on a goroutine and hand the
// editor a pending task.
package upload

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"blockmark/internal/blocks"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 10 << 20

var (
	ErrTooLarge = errors.New("File too large (max 10MB)")
	ErrNotImage = errors.New("Only image files are allowed")
	ErrEmpty    = errors.New("Empty file")
)

// prepare validates f and returns a unique object name and its content type.
func prepare(f blocks.File) (name, contentType string, err error) {
	if len(f.Data) == 0 {
		return "", "", ErrEmpty
	}
	if len(f.Data) > MaxImageSize {
		return "", "", ErrTooLarge
	}
	detected := mimetype.Detect(f.Data)
	contentType = f.ContentType
	if contentType == "" {
		contentType = detected.String()
	}
	if !strings.HasPrefix(contentType, "image/") || !strings.HasPrefix(detected.String(), "image/") {
		return "", "", ErrNotImage
	}

	ext := detected.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(f.Name))
	}
	return uuid.NewString() + ext, contentType, nil
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		out += "/" + strings.Trim(p, "/")
	}
	return out
}
