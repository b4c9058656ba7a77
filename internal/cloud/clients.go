// Package cloud builds the AWS SDK clients shared by the stores, the
// provisioner and the advisory sinks.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/x23379014/MyPOS/internal/config"
)

type Clients struct {
	Region     string
	DynamoDB   *dynamodb.Client
	S3         *s3.Client
	Uploader   *manager.Uploader
	SNS        *sns.Client
	CloudWatch *cloudwatch.Client
}

// New loads the shared SDK configuration. Static credentials are used when
// both keys are configured; otherwise the default chain applies. A non-empty
// endpoint points every client at it, with path-style S3 addressing so local
// emulators work.
func New(ctx context.Context, cfg config.AWS) (*Clients, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return FromConfig(awsCfg, cfg.EndpointURL), nil
}

// FromConfig builds the clients from an already loaded configuration.
func FromConfig(awsCfg aws.Config, endpoint string) *Clients {
	var base *string
	if endpoint != "" {
		base = aws.String(endpoint)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = base
		o.UsePathStyle = base != nil
	})

	return &Clients{
		Region: awsCfg.Region,
		DynamoDB: dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = base
		}),
		S3:       s3Client,
		Uploader: manager.NewUploader(s3Client),
		SNS: sns.NewFromConfig(awsCfg, func(o *sns.Options) {
			o.BaseEndpoint = base
		}),
		CloudWatch: cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			o.BaseEndpoint = base
		}),
	}
}
