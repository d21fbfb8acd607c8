package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Backend is the subset of object store calls the handler needs
type Backend interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	ListObjects(ctx context.Context, bucket, prefix string, recursive bool, limit int) ([]minio.ObjectInfo, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (minio.UploadInfo, error)
	Get(ctx context.Context, bucket, key string, maxSize int64) ([]byte, minio.ObjectInfo, error)
	Stat(ctx context.Context, bucket, key string) (minio.ObjectInfo, error)
	Remove(ctx context.Context, bucket, key string) error
	PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (*url.URL, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// errTooLarge is returned by Get for objects above the size limit
type errTooLarge struct {
	size, max int64
}

func (e errTooLarge) Error() string {
	return fmt.Sprintf("object is %d bytes, limit is %d", e.size, e.max)
}

type minioBackend struct {
	client *minio.Client
}

// NewMinioBackend connects to an S3-compatible endpoint
func NewMinioBackend(cfg Config) (Backend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage: endpoint is not configured")
	}
	endpoint := cfg.Endpoint
	if cfg.Port > 0 {
		endpoint += ":" + strconv.Itoa(cfg.Port)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return &minioBackend{client: client}, nil
}

func (b *minioBackend) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	return b.client.ListBuckets(ctx)
}

func (b *minioBackend) ListObjects(ctx context.Context, bucket, prefix string, recursive bool, limit int) ([]minio.ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []minio.ObjectInfo
	for obj := range b.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, obj)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (b *minioBackend) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (minio.UploadInfo, error) {
	return b.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
}

func (b *minioBackend) Get(ctx context.Context, bucket, key string, maxSize int64) ([]byte, minio.ObjectInfo, error) {
	obj, err := b.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, minio.ObjectInfo{}, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, minio.ObjectInfo{}, err
	}
	if maxSize > 0 && info.Size > maxSize {
		return nil, info, errTooLarge{size: info.Size, max: maxSize}
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, info, err
	}
	return data, info, nil
}

func (b *minioBackend) Stat(ctx context.Context, bucket, key string) (minio.ObjectInfo, error) {
	return b.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
}

func (b *minioBackend) Remove(ctx context.Context, bucket, key string) error {
	return b.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

func (b *minioBackend) PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (*url.URL, error) {
	return b.client.PresignedPutObject(ctx, bucket, key, expiry)
}

func (b *minioBackend) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return b.client.BucketExists(ctx, bucket)
}
