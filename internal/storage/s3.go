// Package storage uploads import exports to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config locates the object store.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Uploader writes objects, creating buckets on first use.
type S3Uploader struct {
	client *minio.Client
	region string

	mu      sync.Mutex
	buckets map[string]bool
}

func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Uploader{client: client, region: region, buckets: make(map[string]bool)}, nil
}

func (u *S3Uploader) ensureBucket(ctx context.Context, bucket string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.buckets[bucket] {
		return nil
	}
	exists, err := u.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
			return err
		}
	}
	u.buckets[bucket] = true
	return nil
}

// Upload stores content under bucket/key.
func (u *S3Uploader) Upload(ctx context.Context, bucket, key string, content []byte, contentType string) error {
	if err := u.ensureBucket(ctx, bucket); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := u.client.PutObject(ctx, bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// IsS3URL reports whether dest names an s3:// object.
func IsS3URL(dest string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(dest)), "s3://")
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(dest string) (bucket, key string, err error) {
	u, err := url.Parse(strings.TrimSpace(dest))
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", dest, err)
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("%q is not an s3:// URL", dest)
	}
	key = strings.TrimLeft(u.Path, "/")
	if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%q must name a bucket and an object key", dest)
	}
	return u.Host, key, nil
}
