package s3archive

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
)

const defaultPrefix = "webhooks/stripe"

// Config holds S3 archive configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Prefix          string
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
		Prefix:          strings.Trim(env.GetEnv("S3_ARCHIVE_PREFIX", defaultPrefix), "/"),
		Enabled:         env.GetEnvBool("S3_ARCHIVE_ENABLED", false),
	}

	// Validate required fields if the archive is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if the archive is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey returns the key of an archived payload.
// Format: <prefix>/YYYY/MM/DD/<event_id>.json
func (c *Config) ObjectKey(eventID string, receivedAt time.Time) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	t := receivedAt.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.json", prefix, t.Year(), int(t.Month()), t.Day(), safeKeySegment(eventID))
}

func safeKeySegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == ':':
			return r
		default:
			return '_'
		}
	}, s)
}
