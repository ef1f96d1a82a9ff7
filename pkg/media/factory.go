package media

import (
	"context"
	"fmt"
	"path/filepath"
)

// StoreType represents the type of media storage backend.
type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// Config selects and configures a backend.
type Config struct {
	Type          StoreType
	DataDir       string
	PublicBaseURL string

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	GCSBucket string
	GCSPrefix string
}

// NewStore creates the configured backend. An empty Type selects the filesystem.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "", StoreTypeFS:
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "data"
		}
		return NewFileStore(filepath.Join(dataDir, "media"), cfg.PublicBaseURL)
	case StoreTypeS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("MEDIA_S3_BUCKET is required for S3 storage")
		}
		region := cfg.S3Region
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:        cfg.S3Bucket,
			Region:        region,
			Endpoint:      cfg.S3Endpoint,
			Prefix:        cfg.S3Prefix,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	case StoreTypeGCS:
		return newGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported media storage type: %s", cfg.Type)
	}
}
