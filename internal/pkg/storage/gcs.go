package storage

import (
	"context"
	"errors"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore implements Store using Google Cloud Storage.
type GCSStore struct {
	client *gcs.Client

	// signing is optional; without it the presign methods fail with
	// ErrMissingSigner.
	googleAccessID string
	privateKey     []byte
}

// GCSOptions configures GCS client initialization.
type GCSOptions struct {
	// Client provides an existing GCS client.
	Client *gcs.Client
	// GoogleAccessID is the service account access ID for signing.
	GoogleAccessID string
	// PrivateKey is the service account private key for signing.
	PrivateKey []byte
}

// NewGCS constructs a GCS store with optional signing support.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	client := opts.Client
	if client == nil {
		created, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		client = created
	}

	return &GCSStore{
		client:         client,
		googleAccessID: opts.GoogleAccessID,
		privateKey:     opts.PrivateKey,
	}, nil
}

// Upload stores data in GCS and returns metadata.
func (g *GCSStore) Upload(ctx context.Context, bucket, key string, r io.Reader, opts UploadOptions) (Object, error) {
	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if opts.ContentType != "" {
		writer.ContentType = opts.ContentType
	}
	if len(opts.Metadata) > 0 {
		writer.Metadata = opts.Metadata
	}

	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return Object{}, closeErr
		}
		return Object{}, err
	}
	if err := writer.Close(); err != nil {
		return Object{}, err
	}

	attrs := writer.Attrs()
	if attrs == nil {
		return Object{
			Bucket:      bucket,
			Key:         key,
			Size:        opts.Size,
			ContentType: opts.ContentType,
			Metadata:    opts.Metadata,
		}, nil
	}
	return gcsAttrsToObject(attrs), nil
}

// Download retrieves data and metadata from GCS.
func (g *GCSStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, Object, error) {
	obj := g.client.Bucket(bucket).Object(key)

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, Object{}, err
	}

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if closeErr := reader.Close(); closeErr != nil {
			return nil, Object{}, closeErr
		}
		return nil, Object{}, err
	}
	return reader, gcsAttrsToObject(attrs), nil
}

// Stat returns metadata for a GCS object.
func (g *GCSStore) Stat(ctx context.Context, bucket, key string) (Object, error) {
	attrs, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		return Object{}, err
	}
	return gcsAttrsToObject(attrs), nil
}

// Delete removes an object from GCS.
func (g *GCSStore) Delete(ctx context.Context, bucket, key string) error {
	return g.client.Bucket(bucket).Object(key).Delete(ctx)
}

// List returns objects under a prefix from GCS.
func (g *GCSStore) List(ctx context.Context, bucket, prefix string, limit int32) ([]Object, error) {
	it := g.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	if limit > 0 {
		it.PageInfo().MaxSize = int(limit)
	}

	objects := make([]Object, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, gcsAttrsToObject(attrs))
		if limit > 0 && int32(len(objects)) >= limit {
			break
		}
	}
	return objects, nil
}

// PresignGet returns a signed URL for downloading from GCS.
func (g *GCSStore) PresignGet(_ context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if g.googleAccessID == "" || len(g.privateKey) == 0 {
		return "", ErrMissingSigner
	}
	return gcs.SignedURL(bucket, key, &gcs.SignedURLOptions{
		Method:         "GET",
		Expires:        time.Now().Add(expiry),
		GoogleAccessID: g.googleAccessID,
		PrivateKey:     g.privateKey,
	})
}

// PresignPut returns a signed URL for uploading to GCS.
func (g *GCSStore) PresignPut(_ context.Context, bucket, key string, opts UploadOptions, expiry time.Duration) (string, error) {
	if g.googleAccessID == "" || len(g.privateKey) == 0 {
		return "", ErrMissingSigner
	}
	return gcs.SignedURL(bucket, key, &gcs.SignedURLOptions{
		Method:         "PUT",
		Expires:        time.Now().Add(expiry),
		GoogleAccessID: g.googleAccessID,
		PrivateKey:     g.privateKey,
		ContentType:    opts.ContentType,
	})
}

// Close closes the GCS client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}

func gcsAttrsToObject(attrs *gcs.ObjectAttrs) Object {
	if attrs == nil {
		return Object{}
	}
	return Object{
		Bucket:      attrs.Bucket,
		Key:         attrs.Name,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		ContentType: attrs.ContentType,
		Metadata:    attrs.Metadata,
		UpdatedAt:   attrs.Updated,
	}
}
