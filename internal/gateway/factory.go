package gateway

import (
	"context"
	"fmt"

	"eivu-go/internal/config"
	"eivu-go/internal/eivu"
)

// NewGatewayFromConfig creates a RemoteGateway based on the gateway config type.
func NewGatewayFromConfig(ctx context.Context, cfg config.GatewayConfig) (eivu.RemoteGateway, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryGateway(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem gateway requires fs_root to be set")
		}
		g, err := NewFileSystemGateway(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "s3":
		g, err := NewS3Gateway(ctx, S3Options{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			Scheme:          cfg.S3Scheme,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown gateway type: %s", cfg.Type)
	}
}
