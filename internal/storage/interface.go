package storage

import (
	"context"
	"io"
)

// ObjectStorage is the subset of object-store operations used to publish
// dubbed outputs.
type ObjectStorage interface {
	// EnsureBucket creates the target bucket when the backend allows it
	EnsureBucket(ctx context.Context) error

	// Upload stores an object under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL of an object
	GetURL(key string) string
}

// StorageType defines the object storage backend
type StorageType string

const (
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
	StorageTypeMinIO        StorageType = "minio"
)

// Config holds connection settings shared by all backends.
type Config struct {
	Type      StorageType
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string // public URL prefix (R2.dev, CDN); empty means derive from endpoint
}
