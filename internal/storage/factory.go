package storage

import (
	"fmt"

	"github.com/gracehq/chms/internal/config"
)

// NewArtifactStore creates the configured artifact store backend.
func NewArtifactStore(cfg *config.StorageConfig, exportDir string) (ArtifactStore, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(exportDir)
	case "s3":
		return NewS3Store(&S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", cfg.Type)
	}
}
