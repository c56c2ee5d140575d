package imagestore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/mosquitoalert/mosquito-alert-api/config"
)

type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStore keeps images in a Cloudinary folder, resized to fit
// 1000x1000
type CloudinaryStore struct {
	api    cloudinaryAPI
	folder string
}

// NewCloudinaryStore builds a store from conf
func NewCloudinaryStore(conf config.Cloudinary) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(conf.CloudName, conf.APIKey, conf.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryStore{api: &cld.Upload, folder: conf.Folder}, nil
}

// Put implements Store
func (c *CloudinaryStore) Put(ctx context.Context, img Image) (Stored, error) {
	res, err := c.api.Upload(ctx, bytes.NewReader(img.Data), uploader.UploadParams{
		Folder:         c.folder,
		PublicID:       uuid.NewString(),
		AllowedFormats: api.CldAPIArray{"jpg", "jpeg", "png", "gif", "webp"},
		Transformation: "c_limit,w_1000,h_1000",
	})
	if err != nil {
		return Stored{}, fmt.Errorf("failed to upload image: %w", err)
	}
	if res.Error.Message != "" {
		return Stored{}, fmt.Errorf("failed to upload image: %s", res.Error.Message)
	}
	return Stored{URL: res.SecureURL, Key: res.PublicID}, nil
}

// Remove implements Store
func (c *CloudinaryStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return fmt.Errorf("failed to remove image %s: %w", key, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("failed to remove image %s: %s", key, res.Error.Message)
	}
	return nil
}
