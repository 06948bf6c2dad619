package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/recbee/unistore/config"
)

// Client is a wrapper around [s3.Client] that holds bucket name.
type Client struct {
	cli    *s3.Client
	bucket string
}

// NewClient returns a new instance of a [Client].
//
// Endpoint, region and the credential pair are optional overrides;
// when absent the SDK falls back to its ambient defaults (environment,
// shared config, instance metadata). Path-style addressing is enabled
// only for endpoint overrides, which usually point at minio.
func NewClient(ctx context.Context, cfg config.S3Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithClientLogMode(aws.ClientLogMode(0)),
	}

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		credp := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(credp))
	}

	awscfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot load S3 config: %w", err)
	}

	s3cli := s3.NewFromConfig(awscfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
		o.DisableLogOutputChecksumValidationSkipped = true
	})

	return &Client{s3cli, cfg.Bucket}, nil
}
