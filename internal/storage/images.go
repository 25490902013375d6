package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxImageSize is the upload cap for product images (5MB).
	MaxImageSize = 5 * 1024 * 1024

	keyPrefix = "dimmer"
)

var (
	ErrImageTooLarge          = errors.New("image exceeds the maximum allowed size")
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrStorageDisabled        = errors.New("image storage is not configured")
)

// contentTypes maps accepted image extensions to their MIME type.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ObjectAPI is the subset of the S3 client used by the image store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ImageStore stores product images in an external object store and hands back
// public URLs. Deletes are best-effort from the caller's point of view.
type ImageStore interface {
	Enabled() bool
	Upload(ctx context.Context, filename string, content io.Reader, size int64) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

// S3ImageStore keeps product images in a single S3 bucket under a fixed
// prefix. If the bucket is empty the store is disabled and uploads fail while
// deletes are no-ops, which keeps local development working without S3.
type S3ImageStore struct {
	bucket  string
	baseURL string
	client  ObjectAPI
	logger  *zap.Logger
}

// NewS3ImageStore creates an image store backed by the given S3 client.
// baseURL is the public root under which objects are reachable, without a
// trailing slash (e.g. a CDN or the bucket website endpoint).
func NewS3ImageStore(client ObjectAPI, bucket, baseURL string, logger *zap.Logger) *S3ImageStore {
	return &S3ImageStore{
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Enabled reports whether the store is configured for uploads.
func (s *S3ImageStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

// Upload stores the image under a fresh key and returns its public URL.
func (s *S3ImageStore) Upload(ctx context.Context, filename string, content io.Reader, size int64) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}
	if size > MaxImageSize {
		return "", ErrImageTooLarge
	}

	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", ErrUnsupportedImageFormat
	}

	key := fmt.Sprintf("%s/%s%s", keyPrefix, uuid.NewString(), ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          content,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image %s: %w", key, err)
	}

	url := s.baseURL + "/" + key
	s.logger.Info("Image uploaded", zap.String("key", key), zap.String("url", url))

	return url, nil
}

// Delete removes the object behind imageURL. A URL outside this store's base
// is ignored. Failures are logged by the caller and never retried; an
// orphaned object is an accepted inconsistency.
func (s *S3ImageStore) Delete(ctx context.Context, imageURL string) error {
	if !s.Enabled() || imageURL == "" {
		return nil
	}

	key := s.keyFromURL(imageURL)
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", key, err)
	}

	s.logger.Info("Image deleted", zap.String("key", key))
	return nil
}

// keyFromURL recovers the object key from a public URL produced by Upload.
func (s *S3ImageStore) keyFromURL(imageURL string) string {
	rest, found := strings.CutPrefix(imageURL, s.baseURL+"/")
	if !found || !strings.HasPrefix(rest, keyPrefix+"/") {
		return ""
	}
	return rest
}
