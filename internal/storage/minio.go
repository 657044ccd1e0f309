package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ FileStorage = (*Minio)(nil)

// MinioConfig holds the connection parameters for an S3-compatible bucket.
type MinioConfig struct {
	Endpoint        string // host:port, e.g. "localhost:9000"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
}

// Minio stores covers as objects in one bucket.
type Minio struct {
	client     *minio.Client
	bucketName string
	logger     *slog.Logger
}

// NewMinio connects to the endpoint and makes sure the bucket exists,
// creating it on first start.
func NewMinio(ctx context.Context, cfg MinioConfig, logger *slog.Logger) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: checking bucket %q: %w", cfg.BucketName, err)
	}
	if !exists {
		logger.Info("creating cover bucket", slog.String("bucket", cfg.BucketName))
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("storage: creating bucket %q: %w", cfg.BucketName, err)
		}
	}

	return &Minio{client: client, bucketName: cfg.BucketName, logger: logger}, nil
}

func (m *Minio) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	info, err := m.client.PutObject(ctx, m.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("storage: uploading %s: %w", key, err)
	}

	m.logger.Debug("cover stored in bucket",
		slog.String("key", key),
		slog.String("bucket", m.bucketName),
		slog.Int64("bytes", info.Size),
		slog.String("etag", info.ETag),
	)
	return nil
}

// Open stats the object first: GetObject is lazy and would only report a
// missing key on the first Read, after the HTTP status is already written.
func (m *Minio) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !ValidKey(key) {
		return nil, ErrObjectNotFound
	}
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.translate(key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, m.translate(key, err)
	}
	return obj, nil
}

func (m *Minio) Remove(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	if err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return m.translate(key, err)
	}
	return nil
}

func (m *Minio) translate(key string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return fmt.Errorf("storage: bucket %s, key %s: %w", m.bucketName, key, err)
}
