package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/mikepea/photocards/pkg/photocards/backend"
)

// Ensure S3 implements backend.ObjectStore
var _ backend.ObjectStore = (*S3)(nil)

// S3Config configures an S3-compatible bucket
type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint (MinIO, R2, Supabase storage, ...)
	Endpoint string
	// PublicBaseURL is prefixed to "/<bucket>/<key>" to build public URLs.
	// Defaults to Endpoint, or the regional path-style S3 host.
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// S3 stores objects in an S3 bucket
type S3 struct {
	client     s3iface.S3API
	uploader   *s3manager.Uploader
	bucket     string
	publicBase string
}

// NewS3 opens a session for cfg
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		publicBase = cfg.Endpoint
	}
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}

	return NewS3WithClient(s3.New(sess), cfg.Bucket, publicBase), nil
}

// NewS3WithClient wraps an existing client
func NewS3WithClient(client s3iface.S3API, bucket, publicBase string) *S3 {
	return &S3{
		client:     client,
		uploader:   s3manager.NewUploaderWithClient(client),
		bucket:     bucket,
		publicBase: publicBase,
	}
}

// Upload puts body under key
func (s *S3) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the path-style URL of key
func (s *S3) PublicURL(key string) string {
	return publicURL(s.publicBase, s.bucket, key)
}

// KeyFromURL parses a URL produced by PublicURL
func (s *S3) KeyFromURL(rawURL string) (string, bool) {
	return keyAfterMarker(rawURL, s.bucket)
}

// Remove deletes each key; every key is attempted
func (s *S3) Remove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
