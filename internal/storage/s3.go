// Package storage uploads product images to an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/nimasrn/live-commerce/pkg/logger"
)

var (
	ErrStorageNotConfigured = errors.New("object storage is not configured")
	ErrEmptyFileName        = errors.New("file name is required")
)

type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	PublicURL    string
	UsePathStyle bool
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type S3Storage struct {
	client    objectAPI
	bucket    string
	publicURL string
	newID     func() string
}

func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrStorageNotConfigured
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3Storage(client, cfg.Bucket, publicBase(cfg, endpoint, region)), nil
}

func newS3Storage(client objectAPI, bucket, publicURL string) *S3Storage {
	return &S3Storage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		newID:     uuid.NewString,
	}
}

func publicBase(cfg Config, endpoint, region string) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	logger.Info("creating storage bucket", "bucket", s.bucket)
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores body under folder and returns its public URL. The file name is sanitised
// and prefixed with a random id so uploads never overwrite each other.
func (s *S3Storage) Upload(ctx context.Context, folder, fileName, contentType string, body io.Reader) (string, error) {
	key, err := s.objectKey(folder, fileName)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.Info("object uploaded", "bucket", s.bucket, "key", key)
	return s.URL(key), nil
}

func (s *S3Storage) URL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.publicURL + "/" + strings.Join(parts, "/")
}

func (s *S3Storage) objectKey(folder, fileName string) (string, error) {
	name := SanitizeName(path.Base(strings.ReplaceAll(fileName, "\\", "/")))
	if name == "" || name == "." {
		return "", ErrEmptyFileName
	}

	var segments []string
	for _, seg := range strings.Split(folder, "/") {
		if seg = SanitizeName(seg); seg != "" && seg != "." && seg != ".." {
			segments = append(segments, seg)
		}
	}
	segments = append(segments, s.newID()+"-"+name)
	return strings.Join(segments, "/"), nil
}

// SanitizeName keeps ASCII letters, digits, dot, dash and underscore, mapping spaces to dashes.
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
