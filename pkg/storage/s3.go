package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxMediaFileSize is the maximum allowed size for site media uploads (25MB).
	MaxMediaFileSize = 25 * 1024 * 1024
	// FolderAttachments is the S3 prefix for booking attachments.
	FolderAttachments = "attachments"
	// FolderMedia is the S3 prefix for site media.
	FolderMedia = "media"
)

// AllowedMediaExtensions maps media file extensions to their MIME type.
var AllowedMediaExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".pdf":  "application/pdf",
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AttachmentsBucket    string
	MediaBucket          string
	PresignExpireMinutes int
}

// S3 stores booking attachments (private) and site media (public read).
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config, falling back to
// AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY and then the default chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials",
			zap.String("region", cfg.Region),
			zap.String("attachments_bucket", cfg.AttachmentsBucket),
			zap.String("media_bucket", cfg.MediaBucket),
		)
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &S3{client: client, uploader: uploader, cfg: cfg, logger: logger}, nil
}

// MediaContentType returns the MIME type for a media filename, and whether
// the extension is allowed.
func MediaContentType(filename string) (string, bool) {
	ct, ok := AllowedMediaExtensions[strings.ToLower(path.Ext(filename))]
	return ct, ok
}

func safeName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return "file"
	}
	return strings.ReplaceAll(base, " ", "-")
}

// AttachmentKey returns attachments/{scope}/{uuid}-{filename}.
func AttachmentKey(scope, filename string) string {
	return path.Join(FolderAttachments, scope, uuid.New().String()+"-"+safeName(filename))
}

// MediaKey returns media/{yyyy}/{mm}/{uuid}{ext}.
func MediaKey(filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(FolderMedia, now.UTC().Format("2006/01"), uuid.New().String()+ext)
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// PublicObjectURL returns the unsigned URL of an object.
func (s *S3) PublicObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.cfg.Region, key)
}

// Upload streams body to S3 and returns the object URL.
func (s *S3) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64, publicRead bool) (string, error) {
	var contentLengthPtr *int64
	if contentLength > 0 {
		contentLengthPtr = &contentLength
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
	}
	if publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return s.PublicObjectURL(bucket, key), nil
}

// UploadAttachment stores a booking attachment privately under the client
// scope and returns its key.
func (s *S3) UploadAttachment(ctx context.Context, scope, filename, contentType string, body io.Reader, size int64) (string, error) {
	key := AttachmentKey(scope, filename)
	if _, err := s.Upload(ctx, s.cfg.AttachmentsBucket, key, contentType, body, size, false); err != nil {
		return "", err
	}
	s.logger.Debug("attachment stored", zap.String("key", key), zap.Int64("size", size))
	return key, nil
}

// UploadMedia stores a public site media file and returns its key and URL.
func (s *S3) UploadMedia(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, string, error) {
	key := MediaKey(filename, time.Now())
	url, err := s.Upload(ctx, s.cfg.MediaBucket, key, contentType, body, size, true)
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

// MediaUploadURL returns a key and pre-signed PUT URL for a direct browser upload.
func (s *S3) MediaUploadURL(ctx context.Context, filename, contentType string) (string, string, error) {
	key := MediaKey(filename, time.Now())
	req, err := s3.NewPresignClient(s.client).PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.MediaBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.PresignExpire()
	})
	if err != nil {
		return "", "", fmt.Errorf("presign put: %w", err)
	}
	return key, req.URL, nil
}

// AttachmentDownloadURL returns a pre-signed GET URL for a stored attachment.
func (s *S3) AttachmentDownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s3.NewPresignClient(s.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AttachmentsBucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.PresignExpire()
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// DeleteObject removes an object.
func (s *S3) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// DeleteMedia removes a media object.
func (s *S3) DeleteMedia(ctx context.Context, key string) error {
	return s.DeleteObject(ctx, s.cfg.MediaBucket, key)
}

// DeleteAttachment removes an attachment uploaded from a booking form.
func (s *S3) DeleteAttachment(ctx context.Context, key string) error {
	return s.DeleteObject(ctx, s.cfg.AttachmentsBucket, key)
}
