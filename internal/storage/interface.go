package storage

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/flexbase/flexbase/internal/models"
)

// Uploader stores post media. Implementations must be safe for concurrent use.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, header *multipart.FileHeader, userID string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// UploadResult describes a stored media object
type UploadResult struct {
	Key         string           `json:"key"`
	URL         string           `json:"url"`
	Kind        models.MediaKind `json:"kind"`
	ContentType string           `json:"contentType"`
	Size        int64            `json:"size"`
}

// Media converts the result into the reference stored on a post
func (r *UploadResult) Media() models.Media {
	return models.Media{URL: r.URL, Key: r.Key, Kind: r.Kind}
}

// Ensure both backends implement Uploader
var (
	_ Uploader = (*S3Uploader)(nil)
	_ Uploader = (*LocalUploader)(nil)
)
