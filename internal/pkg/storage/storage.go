// Package storage is the object store behind the document vault.
//
// Deal documents are written once and served through short-lived signed
// URLs, so the surface is deliberately small: upload, stat, delete,
// list, and presigning. The backend is chosen by configuration.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrMissingSigner indicates signed URL support is not configured.
var ErrMissingSigner = errors.New("storage: signed url signer not configured")

// Store defines the object storage operations the vault needs.
type Store interface {
	io.Closer

	// Upload stores data and returns object metadata.
	Upload(ctx context.Context, bucket, key string, r io.Reader, opts UploadOptions) (Object, error)
	// Download retrieves data and metadata for the object.
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, Object, error)
	// Stat returns object metadata without reading its contents.
	Stat(ctx context.Context, bucket, key string) (Object, error)
	// Delete removes the object.
	Delete(ctx context.Context, bucket, key string) error
	// List returns up to limit objects under a prefix. limit <= 0 means no cap.
	List(ctx context.Context, bucket, prefix string, limit int32) ([]Object, error)
	// PresignGet returns a signed URL for downloading.
	PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	// PresignPut returns a signed URL for uploading.
	PresignPut(ctx context.Context, bucket, key string, opts UploadOptions, expiry time.Duration) (string, error)
}

// UploadOptions configures upload behavior.
type UploadOptions struct {
	// Size is the expected content length.
	Size int64
	// ContentType is the MIME type for the object.
	ContentType string
	// Metadata includes custom key/value metadata.
	Metadata map[string]string
}

// Object describes stored object metadata.
type Object struct {
	Bucket      string
	Key         string
	Size        int64
	ETag        string
	ContentType string
	Metadata    map[string]string
	UpdatedAt   time.Time
}
