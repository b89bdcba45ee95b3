package storage

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxUploadBytes caps uploads when no limit is configured
const DefaultMaxUploadBytes = 50 << 20

type mediaType struct {
	kind models.MediaKind
	ext  string
}

// Accepted content types and the extension stored objects get
var mediaTypes = map[string]mediaType{
	"image/jpeg":      {models.MediaImage, ".jpg"},
	"image/png":       {models.MediaImage, ".png"},
	"image/gif":       {models.MediaImage, ".gif"},
	"image/webp":      {models.MediaImage, ".webp"},
	"video/mp4":       {models.MediaVideo, ".mp4"},
	"video/webm":      {models.MediaVideo, ".webm"},
	"video/quicktime": {models.MediaVideo, ".mov"},
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// DetectContentType picks the media type of an upload. Sniffed content wins,
// then the declared header type, then the file extension.
func DetectContentType(head []byte, declared, filename string) (string, models.MediaKind, bool) {
	sniffed, _, _ := mime.ParseMediaType(mimetype.Detect(head).String())
	candidates := []string{sniffed}
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			candidates = append(candidates, mt)
		}
	}
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		candidates = append(candidates, ct)
	}

	for _, ct := range candidates {
		if t, ok := mediaTypes[ct]; ok {
			return ct, t.kind, true
		}
	}
	return "", "", false
}

// objectKey builds media/{kind}/{yyyy}/{mm}/{userID}/{uuid}{ext}
func objectKey(kind models.MediaKind, contentType, userID string, now time.Time) string {
	return path.Join("media", string(kind),
		fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())),
		userID, uuid.New().String()+mediaTypes[contentType].ext)
}

// readUpload reads at most maxBytes from file and classifies it
func readUpload(file io.Reader, header *multipart.FileHeader, maxBytes int64) ([]byte, string, models.MediaKind, error) {
	if file == nil || header == nil {
		return nil, "", "", apperrors.ValidationError("media", "an image or video is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if header.Size > maxBytes {
		return nil, "", "", tooLarge(maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", "", tooLarge(maxBytes)
	}
	if len(data) == 0 {
		return nil, "", "", apperrors.ValidationError("media", "uploaded file is empty")
	}

	ct, kind, ok := DetectContentType(data, header.Header.Get("Content-Type"), header.Filename)
	if !ok {
		return nil, "", "", apperrors.ValidationError("media", "only jpeg, png, gif, webp, mp4, webm and mov files are accepted")
	}
	return data, ct, kind, nil
}

func tooLarge(maxBytes int64) error {
	return apperrors.ValidationError("media", fmt.Sprintf("file must be at most %d MB", maxBytes>>20))
}
