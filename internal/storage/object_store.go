package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vidtube/api/internal/config"
)

// AssetHandle identifies an uploaded object: the public URL handed to
// clients plus the coordinates needed to delete it again.
type AssetHandle struct {
	URL       string
	Bucket    string
	ObjectKey string
}

type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Upload stores the object and returns a handle with a retrievable URL.
func (s *ObjectStore) Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (AssetHandle, error) {
	options := minio.PutObjectOptions{ContentType: contentType}

	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, objectKey, r, size, options); err != nil {
		return AssetHandle{}, fmt.Errorf("put object: %w", err)
	}

	return AssetHandle{
		URL:       s.publicURL(s.cfg.Bucket, objectKey),
		Bucket:    s.cfg.Bucket,
		ObjectKey: objectKey,
	}, nil
}

// Remove deletes the object behind a handle. Used by the registration
// rollback path.
func (s *ObjectStore) Remove(ctx context.Context, handle AssetHandle) error {
	if err := s.client.RemoveObject(ctx, handle.Bucket, handle.ObjectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *ObjectStore) publicURL(bucket, objectKey string) string {
	base := strings.TrimSuffix(s.cfg.Endpoint, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, objectKey)
}
