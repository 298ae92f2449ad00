package filehandler

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes the object store behind s3:// inputs
type S3Config struct {
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint" validate:"omitempty,url"` // S3-compatible servers (MinIO, Ceph)
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	PathStyle bool   `koanf:"path_style"`
}

// DefaultS3Config returns an AWS configuration for us-east-1
func DefaultS3Config() S3Config {
	return S3Config{Region: "us-east-1"}
}

// S3Fetcher reads input images from S3 buckets
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher creates a fetcher. Without an access key requests are sent unsigned.
func NewS3Fetcher(cfg S3Config) *S3Fetcher {
	client := s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &S3Fetcher{client: client}
}

// IsS3URI checks if the given string is an s3://bucket/key reference
func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// ParseS3URI splits s3://bucket/key into its bucket and key
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs a bucket and a key: %s", uri)
	}
	return bucket, key, nil
}

// Fetch downloads the object named by uri and returns it with its base name
func (f *S3Fetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, "", err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", uri, err)
	}
	defer out.Body.Close()

	if aws.ToInt64(out.ContentLength) > MaxFileSize {
		return nil, "", ErrTooLarge
	}
	data, err := readLimited(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", uri, err)
	}
	return data, path.Base(key), nil
}
