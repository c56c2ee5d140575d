// Package imagestore uploads report photos to an image host and removes them
// again when a report is deleted.
package imagestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Image is a sniffed upload ready to be stored
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Stored is where an image ended up. URL is what reports keep; Key is what
// Remove takes.
type Stored struct {
	URL string
	Key string
}

// Store is an image host
type Store interface {
	Put(ctx context.Context, img Image) (Stored, error)
	Remove(ctx context.Context, key string) error
}

// Inspect sniffs data and rejects anything that is not a supported image or
// is larger than maxBytes
func Inspect(data []byte, maxBytes int64) (Image, error) {
	if len(data) == 0 {
		return Image{}, models.NewValidationError("image", "Image upload is required. Please upload an image.")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Image{}, models.NewValidationError("image", fmt.Sprintf("image exceeds the %d byte limit", maxBytes))
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return Image{}, models.NewValidationError("image", fmt.Sprintf("only image files are allowed, got %s", mt.String()))
	}
	return Image{
		Data:        data,
		ContentType: mt.String(),
		Extension:   strings.TrimPrefix(mt.Extension(), "."),
	}, nil
}

// New builds the Store selected by conf.ImageStore
func New(conf *config.Config) (Store, error) {
	switch conf.ImageStore {
	case config.ImageStoreS3:
		return NewS3Store(conf.S3)
	case config.ImageStoreCloudinary, "":
		return NewCloudinaryStore(conf.Cloudinary)
	}
	return nil, fmt.Errorf("unknown image store %q", conf.ImageStore)
}
