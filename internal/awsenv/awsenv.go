// Package awsenv loads the shared AWS SDK configuration and builds the
// service clients this module uses (SNS, Secrets Manager, SSM). DynamoDB
// has its own factory in internal/dynamo.
package awsenv

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Config holds the parameters shared by every AWS client.
type Config struct {
	// Region is the AWS region (e.g. "ap-south-1").
	Region string

	// Endpoint overrides the default AWS endpoint for every service.
	// Set it to a LocalStack URL (e.g. "http://localhost:4566") for local development;
	// static test credentials are used in that case.
	Endpoint string

	// Timeout is the HTTP client timeout for SDK requests. Zero keeps the SDK default.
	Timeout time.Duration
}

// Load resolves an aws.Config from the default credential chain.
func Load(ctx context.Context, cfg Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.Endpoint != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("test", "test", ""),
			),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.Timeout > 0 {
		awsCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return awsCfg, nil
}

// endpoint returns nil when no override is configured.
func endpoint(raw string) *string {
	if raw == "" {
		return nil
	}
	return aws.String(raw)
}

// NewSNS builds an SNS client for direct-to-phone SMS publishing.
func NewSNS(awsCfg aws.Config, cfg Config) *sns.Client {
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = endpoint(cfg.Endpoint)
	})
}

// NewSecretsManager builds a Secrets Manager client.
func NewSecretsManager(awsCfg aws.Config, cfg Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		o.BaseEndpoint = endpoint(cfg.Endpoint)
	})
}

// NewSSM builds an SSM Parameter Store client.
func NewSSM(awsCfg aws.Config, cfg Config) *ssm.Client {
	return ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
		o.BaseEndpoint = endpoint(cfg.Endpoint)
	})
}
