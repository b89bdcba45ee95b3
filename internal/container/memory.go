package container

import (
	"time"

	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/storage"
	"github.com/redis/go-redis/v9"
)

// MemoryOptions configures NewInMemory
type MemoryOptions struct {
	MediaDir  string
	Secret    []byte
	TokenTTL  time.Duration
	Redis     *redis.Client // optional
	MaxUpload int64
}

// NewInMemory builds a container on the in-memory store with local media,
// for tests and single-process demos
func NewInMemory(opts MemoryOptions) (*Container, error) {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("flexbase-in-memory")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}

	uploader, err := storage.NewLocalUploader(opts.MediaDir, "/media", opts.MaxUpload)
	if err != nil {
		return nil, &ServiceError{Service: "media storage", Err: err}
	}

	c := New().
		SetStore(repository.NewMemoryStore()).
		SetRedis(opts.Redis).
		SetUploader(uploader, uploader.Dir())
	c.wire(opts.Secret, opts.TokenTTL, nil)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
