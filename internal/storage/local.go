package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalUploader writes media below a directory that the server exposes
// under urlPrefix. Used in development when no bucket is configured.
type LocalUploader struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	now       func() time.Time
}

// NewLocalUploader creates dir if needed
func NewLocalUploader(dir, urlPrefix string, maxBytes int64) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &LocalUploader{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		maxBytes:  maxBytes,
		now:       time.Now,
	}, nil
}

// Dir is the directory files are written to
func (u *LocalUploader) Dir() string {
	return u.dir
}

// Upload writes the file to disk and returns its public path.
// Keys share the S3 layout; the URL drops the leading "media/".
func (u *LocalUploader) Upload(ctx context.Context, file io.Reader, header *multipart.FileHeader, userID string) (*UploadResult, error) {
	data, contentType, kind, err := readUpload(file, header, u.maxBytes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := objectKey(kind, contentType, userID, u.now())
	path := u.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write media: %w", err)
	}

	return &UploadResult{
		Key:         key,
		URL:         u.urlPrefix + "/" + strings.TrimPrefix(key, "media/"),
		Kind:        kind,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (u *LocalUploader) Delete(_ context.Context, key string) error {
	if err := os.Remove(u.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	return nil
}

// path maps a key below dir, refusing keys that escape it
func (u *LocalUploader) path(key string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(key, "media/"))
	return filepath.Join(u.dir, clean)
}
