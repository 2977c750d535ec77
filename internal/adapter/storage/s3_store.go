package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"dify-manga/internal/config"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	userAgent          = "dify-manga/1.0"
	defaultContentType = "image/png"
	maxImageBytes      = 32 << 20
)

var errImageTooLarge = errors.New("image exceeds size limit")

// ObjectPutter is the subset of *s3.Client the store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ImageStore mirrors remote images into an S3-compatible bucket.
type S3ImageStore struct {
	Client        ObjectPutter
	Bucket        string
	PublicBaseURL string
	HTTPClient    *http.Client
	// MaxBytes caps a fetched image; larger images fail the mirror.
	MaxBytes int64
}

var _ domain.ImageStore = (*S3ImageStore)(nil)

// NewS3Client builds an S3 client for the configured endpoint. A custom
// endpoint implies path-style addressing, which Supabase and MinIO expect.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3ImageStore wires a store from configuration.
func NewS3ImageStore(client ObjectPutter, cfg config.StorageConfig) *S3ImageStore {
	return &S3ImageStore{
		Client:        client,
		Bucket:        cfg.Bucket,
		PublicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		HTTPClient:    &http.Client{Timeout: cfg.FetchTimeout},
		MaxBytes:      maxImageBytes,
	}
}

// Mirror downloads sourceURL and uploads it under key, returning the public URL.
func (s *S3ImageStore) Mirror(ctx context.Context, sourceURL, key string) (string, error) {
	data, contentType, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	logger.Get().Debug("Uploading image to object store",
		zap.String("bucket", s.Bucket),
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)))

	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.Bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=3600"),
		Body:         bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.PublicBaseURL + "/" + key, nil
}

func (s *S3ImageStore) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code fetching image: %d", resp.StatusCode)
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = maxImageBytes
	}
	if resp.ContentLength > limit {
		return nil, "", fmt.Errorf("%w: %d bytes", errImageTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("%w: more than %d bytes", errImageTooLarge, limit)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	return data, contentType, nil
}

// NoopImageStore is used when object storage is disabled; every mirror fails
// so callers keep the original URL.
type NoopImageStore struct{}

func (NoopImageStore) Mirror(context.Context, string, string) (string, error) {
	return "", domain.ErrStorageDisabled
}
