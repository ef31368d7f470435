// Package storage wraps the MinIO blob collaborator. The core never inspects
// file bytes; it stores them opaquely and hands out short-lived presigned
// download URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/securevault-gateway/internal/config"
)

type Service struct {
	client *minio.Client
	bucket string
}

func NewService(cfg *config.Config) (*Service, error) {
	client, err := minio.New(cfg.Storage.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.MinIO.AccessKey, cfg.Storage.MinIO.SecretKey, ""),
		Secure: cfg.Storage.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Service{
		client: client,
		bucket: cfg.Storage.MinIO.BucketName,
	}, nil
}

// EnsureBucket creates the vault bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}

	return nil
}

// Put stores the uploaded bytes under objectKey and returns the key as the
// share's storage pointer.
func (s *Service) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return objectKey, nil
}

// PresignedDownloadURL issues a temporary content handle for objectKey. The
// URL expires on its own after ttl, independent of any in-process timeout, so
// a stalled client cannot stretch access beyond the share's policy window.
func (s *Service) PresignedDownloadURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}

	return u.String(), nil
}
