package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// MaxImageBytes bounds a decoded upload.
const MaxImageBytes = 10 << 20

// ErrInvalidImage is returned when upload data is not a supported image.
var ErrInvalidImage = errors.New("invalid image data")

// ImageStore is the external provider that holds book images.
type ImageStore interface {
	// Upload stores the encoded image and returns its public URL.
	Upload(ctx context.Context, data string) (string, error)
	// Delete removes the image with the given provider id.
	Delete(ctx context.Context, id string) error
	// IDFromURL returns the provider id for URLs this store issued.
	IDFromURL(url string) (string, bool)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DecodeImage accepts a data URI ("data:image/png;base64,...") or bare
// base64 payload and sniffs the content type from the bytes.
func DecodeImage(data string) (*Image, error) {
	payload := strings.TrimSpace(data)
	if payload == "" {
		return nil, ErrInvalidImage
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, ErrInvalidImage
		}
		payload = payload[comma+1:]
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, ErrInvalidImage
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, ErrInvalidImage
		}
	}
	if len(raw) == 0 || len(raw) > MaxImageBytes {
		return nil, ErrInvalidImage
	}

	contentType := http.DetectContentType(raw)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, ErrInvalidImage
	}
	return &Image{Data: raw, ContentType: contentType, Extension: ext}, nil
}

// idFromURL strips base + "/" from url.
func idFromURL(base, url string) (string, bool) {
	if base == "" {
		return "", false
	}
	prefix := base + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(url, prefix)
	if id == "" || strings.ContainsAny(id, "?#") || strings.Contains(id, "..") {
		return "", false
	}
	return id, true
}
