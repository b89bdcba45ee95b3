package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/flexbase/flexbase/internal/telemetry"
)

// s3API is the subset of the S3 client the uploader uses
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Options configures an S3Uploader
type S3Options struct {
	Region   string
	Bucket   string
	BaseURL  string // public URL prefix, usually a CDN
	Endpoint string // optional, for S3 compatible stores
	MaxBytes int64
}

// S3Uploader handles media uploads to AWS S3
type S3Uploader struct {
	client   s3API
	bucket   string
	region   string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
	return newS3Uploader(client, opts.Bucket, opts.Region, baseURL, opts.MaxBytes), nil
}

func newS3Uploader(client s3API, bucket, region, baseURL string, maxBytes int64) *S3Uploader {
	return &S3Uploader{
		client:   client,
		bucket:   bucket,
		region:   region,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Upload stores an image or video under media/{kind}/{yyyy}/{mm}/{userID}/
func (u *S3Uploader) Upload(ctx context.Context, file io.Reader, header *multipart.FileHeader, userID string) (*UploadResult, error) {
	data, contentType, kind, err := readUpload(file, header, u.maxBytes)
	if err != nil {
		return nil, err
	}

	now := u.now()
	key := objectKey(kind, contentType, userID, now)

	ctx, span := telemetry.TraceStorageCall(ctx, "s3", "put_object", key)
	defer span.End()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),

		// Keys are unique per upload so objects never change
		CacheControl: aws.String("public, max-age=31536000, immutable"),

		Metadata: map[string]string{
			"user-id":           userID,
			"original-filename": header.Filename,
			"upload-timestamp":  now.Format(time.RFC3339),
			"media-kind":        string(kind),
		},
	})
	telemetry.RecordServiceError(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:         key,
		URL:         u.baseURL + "/" + key,
		Kind:        kind,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Delete removes an object from S3
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	ctx, span := telemetry.TraceStorageCall(ctx, "s3", "delete_object", key)
	defer span.End()

	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	telemetry.RecordServiceError(span, err)
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}
