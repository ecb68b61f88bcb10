package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/starford/pagebot/internal/apperr"
)

// S3Config configures the object-storage backend.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Key       string
	UseSSL    bool
}

// S3 implements Provider on an S3-compatible object store.
type S3 struct {
	client   *minio.Client
	bucket   string
	region   string
	key      string
	initOnce sync.Once
	initErr  error
}

// NewS3 creates the object-storage provider. The bucket is created on first use.
func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("storage: s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("storage: s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	key := strings.TrimPrefix(strings.TrimSpace(cfg.Key), "/")
	if key == "" {
		key = "state.json"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init s3 client: %w", err)
	}
	return &S3{client: client, bucket: bucket, region: region, key: key}, nil
}

// Name implements Provider.
func (s *S3) Name() string {
	return "s3:" + s.bucket + "/" + s.key
}

func (s *S3) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Load fetches the document object.
func (s *S3) Load(ctx context.Context) ([]byte, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("storage: ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return data, nil
}

// Save overwrites the document object.
func (s *S3) Save(ctx context.Context, content []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("storage: ensure bucket: %w", err)
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", s.key, err)
	}
	return nil
}

func (s *S3) mapErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("storage: get %s: %w", s.key, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: get %s: %w", s.key, err)
}
