package datasync

import (
	"errors"
	"fmt"
	"time"

	"github.com/choosemypower/ziproute/internal/pkg/env"
)

// Config holds S3 dataset snapshot configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("S3_SNAPSHOT_ENABLED", "false") == "true",
	}

	// Validate required fields if snapshots are enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 snapshots are enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 snapshots are enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 snapshots are enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if S3 snapshots are enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// SnapshotObjectKey generates a standardized S3 object key for a dataset
// snapshot. Format: zip-mappings/YYYY/MM/zip_mappings_YYYYMMDD-HHMMSS.csv
func (c *Config) SnapshotObjectKey(at time.Time) string {
	return fmt.Sprintf("zip-mappings/%04d/%02d/zip_mappings_%s.csv",
		at.Year(), at.Month(), at.Format("20060102-150405"))
}
