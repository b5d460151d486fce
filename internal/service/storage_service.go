package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/dropaz_api/internal/config"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// MaxImageSize is the largest accepted image upload.
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// ObjectPutter is the S3 operation used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Upload is an image received from the back office.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StorageService stores product and category images in S3.
type StorageService struct {
	client    ObjectPutter
	bucket    string
	region    string
	endpoint  string
	publicURL string
}

// NewStorageService builds an S3 backed store. An empty bucket disables uploads.
func NewStorageService(ctx context.Context, cfg *config.S3Config) (*StorageService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("S3 config is nil")
	}
	if cfg.Bucket == "" {
		log.Warn().Msg("S3 bucket not configured - image uploads disabled")
		return &StorageService{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewStorageServiceWithClient(client, cfg), nil
}

// NewStorageServiceWithClient wires an existing S3 client.
func NewStorageServiceWithClient(client ObjectPutter, cfg *config.S3Config) *StorageService {
	return &StorageService{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}
}

// Enabled reports whether uploads are configured.
func (s *StorageService) Enabled() bool {
	return s != nil && s.client != nil && s.bucket != ""
}

// UploadProductImage stores an image for a product and returns its public URL.
func (s *StorageService) UploadProductImage(ctx context.Context, productID int64, up Upload) (string, error) {
	return s.upload(ctx, fmt.Sprintf("products/%d", productID), up)
}

// UploadCategoryIcon stores an icon image for a category and returns its public URL.
func (s *StorageService) UploadCategoryIcon(ctx context.Context, categoryID int64, up Upload) (string, error) {
	return s.upload(ctx, fmt.Sprintf("category_icons/%d", categoryID), up)
}

func (s *StorageService) upload(ctx context.Context, prefix string, up Upload) (string, error) {
	if !s.Enabled() {
		return "", utils.ErrStorageDisabled
	}
	ext, err := validateImage(up)
	if err != nil {
		return "", err
	}

	key := path.Join(prefix, uuid.NewString()+ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          up.Body,
		ContentType:   aws.String(up.ContentType),
		ContentLength: aws.Int64(up.Size),
		CacheControl:  aws.String("public, max-age=31536000"),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload to S3")
		return "", fmt.Errorf("failed to upload: %w", err)
	}

	log.Info().Str("key", key).Msg("Successfully uploaded to S3")
	return s.ObjectURL(key), nil
}

func validateImage(up Upload) (string, error) {
	if up.Body == nil || up.Size <= 0 {
		return "", fmt.Errorf("%w: empty file", utils.ErrInvalidUpload)
	}
	if up.Size > MaxImageSize {
		return "", fmt.Errorf("%w: file exceeds 5MB", utils.ErrInvalidUpload)
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(up.ContentType, ";")[0]))
	ext, ok := imageExtensions[ct]
	if !ok {
		return "", fmt.Errorf("%w: unsupported content type %q", utils.ErrInvalidUpload, up.ContentType)
	}
	return ext, nil
}

// ObjectURL returns the public URL for an object key.
func (s *StorageService) ObjectURL(key string) string {
	switch {
	case s.publicURL != "":
		return s.publicURL + "/" + key
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}
