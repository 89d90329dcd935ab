package awsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Settings describe how to reach an AWS (or S3/CloudWatch compatible) endpoint.
type Settings struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// LoadConfig builds an aws.Config. Static credentials are used when both parts
// are set, otherwise the default provider chain applies. A non-empty Endpoint
// overrides the service endpoint (LocalStack, Yandex Object Storage, MinIO).
func LoadConfig(ctx context.Context, s Settings) (aws.Config, error) {
	if strings.TrimSpace(s.Region) == "" {
		return aws.Config{}, fmt.Errorf("region is required")
	}

	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(s.Region),
	}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if endpoint := strings.TrimSpace(s.Endpoint); endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
