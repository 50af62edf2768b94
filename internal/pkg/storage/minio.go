package storage

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore implements Store using MinIO.
type MinIOStore struct {
	client *minio.Client
}

// MinIOOptions configures MinIO client initialization.
type MinIOOptions struct {
	// Endpoint is the MinIO server address.
	Endpoint string
	// AccessKey is the access key ID.
	AccessKey string
	// SecretKey is the secret access key.
	SecretKey string
	// SessionToken is the optional session token.
	SessionToken string
	// Region is the MinIO region.
	Region string
	// UseSSL toggles TLS for MinIO connections.
	UseSSL bool
}

// NewMinIO constructs a MinIO store with the provided options.
func NewMinIO(opts MinIOOptions) (*MinIOStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinIOStore{client: client}, nil
}

// Upload stores data in MinIO and returns metadata.
func (m *MinIOStore) Upload(ctx context.Context, bucket, key string, r io.Reader, opts UploadOptions) (Object, error) {
	info, err := m.client.PutObject(ctx, bucket, key, r, opts.Size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return Object{}, err
	}

	return Object{
		Bucket:      bucket,
		Key:         key,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}, nil
}

// Download retrieves data and metadata from MinIO.
func (m *MinIOStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, Object, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Object{}, err
	}

	stat, err := obj.Stat()
	if err != nil {
		if closeErr := obj.Close(); closeErr != nil {
			return nil, Object{}, closeErr
		}
		return nil, Object{}, err
	}
	return obj, minioStatToObject(bucket, key, stat), nil
}

// Stat returns metadata for a MinIO object.
func (m *MinIOStore) Stat(ctx context.Context, bucket, key string) (Object, error) {
	stat, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return Object{}, err
	}
	return minioStatToObject(bucket, key, stat), nil
}

// Delete removes an object from MinIO.
func (m *MinIOStore) Delete(ctx context.Context, bucket, key string) error {
	return m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

// List returns objects under a prefix from MinIO.
func (m *MinIOStore) List(ctx context.Context, bucket, prefix string, limit int32) ([]Object, error) {
	objects := make([]Object, 0)
	for item := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if item.Err != nil {
			return nil, item.Err
		}
		objects = append(objects, Object{
			Bucket:    bucket,
			Key:       item.Key,
			Size:      item.Size,
			ETag:      item.ETag,
			UpdatedAt: item.LastModified,
		})
		if limit > 0 && int32(len(objects)) >= limit {
			break
		}
	}
	return objects, nil
}

// PresignGet returns a signed URL for downloading from MinIO.
func (m *MinIOStore) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, bucket, key, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PresignPut returns a signed URL for uploading to MinIO.
func (m *MinIOStore) PresignPut(ctx context.Context, bucket, key string, _ UploadOptions, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedPutObject(ctx, bucket, key, expiry)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Close releases MinIO store resources.
func (m *MinIOStore) Close() error {
	return nil
}

func minioStatToObject(bucket, key string, stat minio.ObjectInfo) Object {
	return Object{
		Bucket:      bucket,
		Key:         key,
		Size:        stat.Size,
		ETag:        stat.ETag,
		ContentType: stat.ContentType,
		Metadata:    stat.UserMetadata,
		UpdatedAt:   stat.LastModified,
	}
}
