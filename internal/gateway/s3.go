package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"eivu-go/internal/eivu"
)

// S3Options configures an S3Gateway.
type S3Options struct {
	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the SDK's default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle addresses buckets as <endpoint>/<bucket> instead of
	// <bucket>.<endpoint>, as most self-hosted S3 servers require.
	UsePathStyle bool

	// Scheme is prepended to region endpoints. Defaults to "https".
	Scheme string
}

// S3Gateway talks to S3-compatible object stores. Each region row carries
// its own endpoint, so one client is kept per (region, endpoint) pair.
type S3Gateway struct {
	cfg  aws.Config
	opts S3Options

	mu      sync.Mutex
	clients map[eivu.Location]*s3.Client
}

// NewS3Gateway loads the AWS configuration and returns a gateway.
func NewS3Gateway(ctx context.Context, opts S3Options) (*S3Gateway, error) {
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &S3Gateway{
		cfg:     cfg,
		opts:    opts,
		clients: make(map[eivu.Location]*s3.Client),
	}, nil
}

func (g *S3Gateway) client(loc eivu.Location) *s3.Client {
	clientKey := eivu.Location{Region: loc.Region, Endpoint: loc.Endpoint}

	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[clientKey]; ok {
		return c
	}
	c := s3.NewFromConfig(g.cfg, func(o *s3.Options) {
		o.Region = loc.Region
		o.BaseEndpoint = aws.String(g.opts.Scheme + "://" + loc.Endpoint)
		o.UsePathStyle = g.opts.UsePathStyle
	})
	g.clients[clientKey] = c
	return c
}

// PutObject uploads r under key, splitting large bodies into multipart uploads.
func (g *S3Gateway) PutObject(ctx context.Context, loc eivu.Location, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(loc.BucketName),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	uploader := manager.NewUploader(g.client(loc))
	if _, err := uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("uploading %s to %s: %w", key, loc.BucketName, err)
	}
	return nil
}

// DeleteObject removes key. S3 reports success for missing keys.
func (g *S3Gateway) DeleteObject(ctx context.Context, loc eivu.Location, key string) error {
	_, err := g.client(loc).DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(loc.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s from %s: %w", key, loc.BucketName, err)
	}
	return nil
}

// ValidateSetup checks that credentials resolve.
func (g *S3Gateway) ValidateSetup(ctx context.Context) error {
	if g.cfg.Credentials == nil {
		return fmt.Errorf("no aws credentials configured")
	}
	if _, err := g.cfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("resolving aws credentials: %w", err)
	}
	return nil
}

var _ eivu.RemoteGateway = (*S3Gateway)(nil)
