// Package provision ensures the cloud resources the point-of-sale core
// depends on exist: key-value tables, the product image bucket and the
// transaction notification topic.
//
// Every ensure operation is idempotent. Table and bucket idempotency is
// enforced by the provider; the topic handle is cached in the Provisioner
// for the life of the process and never invalidated, so a topic deleted out
// of band makes publishes fail until restart.
package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"

	"github.com/x23379014/MyPOS/internal/apperr"
)

// TopicFragment identifies the notification topic among existing topics.
const TopicFragment = "transaction-notifications"

// TableAPI is the subset of the DynamoDB client used for provisioning.
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// BucketAPI is the subset of the S3 client used for provisioning.
type BucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
}

// TopicAPI is the subset of the SNS client used for topic resolution.
type TopicAPI interface {
	sns.ListTopicsAPIClient
	CreateTopic(ctx context.Context, params *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error)
}

// Table names a collection and its single string partition key.
type Table struct {
	Name string
	Key  string
}

// Config names the resources to provision.
type Config struct {
	Region    string
	Tables    []Table
	Bucket    string
	TopicName string
}

// Provisioner owns the ensure-exists paths and the cached topic handle.
type Provisioner struct {
	cfg      Config
	tables   TableAPI
	buckets  BucketAPI
	topics   TopicAPI
	reporter *apperr.Reporter

	topicARN atomic.Pointer[string]
	topicMu  sync.Mutex
}

func NewProvisioner(cfg Config, tables TableAPI, buckets BucketAPI, topics TopicAPI, reporter *apperr.Reporter) *Provisioner {
	if reporter == nil {
		reporter = apperr.NewReporter(nil)
	}
	return &Provisioner{
		cfg:      cfg,
		tables:   tables,
		buckets:  buckets,
		topics:   topics,
		reporter: reporter,
	}
}

// EnsureTables creates every configured table that does not exist yet. A
// failure on one table does not prevent the attempt on the next.
func (p *Provisioner) EnsureTables(ctx context.Context) error {
	var errs []error
	for _, t := range p.cfg.Tables {
		if err := p.EnsureTable(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EnsureTable creates one on-demand table keyed by a single string attribute.
// An existing table is success.
func (p *Provisioner) EnsureTable(ctx context.Context, t Table) error {
	_, err := p.tables.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(t.Name),
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String(t.Key), KeyType: ddbtypes.KeyTypeHash},
		},
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: aws.String(t.Key), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		if errorCode(err) == "ResourceInUseException" {
			return nil
		}
		return p.reporter.Dependency(err, "create_table", t.Name)
	}
	p.reporter.Success("create_table", t.Name)
	return nil
}

// WaitForTables blocks until every configured table reports ACTIVE, allowing
// up to maxWait per table. EnsureTable returns as soon as creation is
// accepted, so a store that ensured its own table lazily can still see
// ResourceNotFoundException on the first request while the table is CREATING.
// Only the provision command waits.
func (p *Provisioner) WaitForTables(ctx context.Context, api dynamodb.DescribeTableAPIClient, maxWait time.Duration, optFns ...func(*dynamodb.TableExistsWaiterOptions)) error {
	waiter := dynamodb.NewTableExistsWaiter(api, optFns...)
	var errs []error
	for _, t := range p.cfg.Tables {
		err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.Name)}, maxWait)
		if err != nil {
			errs = append(errs, p.reporter.Dependency(err, "wait_table", t.Name))
			continue
		}
		p.reporter.Success("wait_table", t.Name)
	}
	return errors.Join(errs...)
}

// EnsureBucket makes sure the image bucket exists and tries to apply a
// public-read object policy. Only the existence check and creation can fail
// the call; the policy is best effort.
func (p *Provisioner) EnsureBucket(ctx context.Context) error {
	bucket := p.cfg.Bucket

	_, err := p.buckets.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	switch {
	case err == nil:
		p.reporter.Success("head_bucket", bucket)
	case isNotFound(err):
		if err := p.createBucket(ctx); err != nil {
			return err
		}
	case isForbidden(err):
		// Owned by someone we cannot inspect; uploads will tell.
		p.reporter.Logger().Info("bucket exists but is not inspectable, continuing", "bucket", bucket)
	default:
		return p.reporter.Dependency(err, "head_bucket", bucket)
	}

	if err := p.applyPublicReadPolicy(ctx); err != nil {
		p.reporter.Logger().Warn("could not set bucket policy, it may already be configured or need manual setup",
			"bucket", bucket,
			"error", err,
		)
	}
	return nil
}

func (p *Provisioner) createBucket(ctx context.Context) error {
	bucket := p.cfg.Bucket
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if p.cfg.Region != "" && p.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(p.cfg.Region),
		}
	}

	if _, err := p.buckets.CreateBucket(ctx, input); err != nil {
		if errorCode(err) == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return p.reporter.Dependency(err, "create_bucket", bucket)
	}
	p.reporter.Success("create_bucket", bucket)
	return nil
}

type policyStatement struct {
	Sid       string `json:"Sid"`
	Effect    string `json:"Effect"`
	Principal string `json:"Principal"`
	Action    string `json:"Action"`
	Resource  string `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

func (p *Provisioner) applyPublicReadPolicy(ctx context.Context) error {
	doc, err := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "PublicReadGetObject",
			Effect:    "Allow",
			Principal: "*",
			Action:    "s3:GetObject",
			Resource:  fmt.Sprintf("arn:aws:s3:::%s/*", p.cfg.Bucket),
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal bucket policy: %w", err)
	}

	_, err = p.buckets.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(p.cfg.Bucket),
		Policy: aws.String(string(doc)),
	})
	if err != nil {
		return err
	}
	p.reporter.Success("put_bucket_policy", p.cfg.Bucket)
	return nil
}

// Topic returns the notification topic ARN, resolving it on first use. The
// first caller scans existing topics and creates one only if none matches;
// concurrent first callers wait for that result. Resolution failures are not
// cached.
func (p *Provisioner) Topic(ctx context.Context) (string, error) {
	if arn := p.topicARN.Load(); arn != nil {
		return *arn, nil
	}

	p.topicMu.Lock()
	defer p.topicMu.Unlock()

	if arn := p.topicARN.Load(); arn != nil {
		return *arn, nil
	}

	arn, err := p.resolveTopic(ctx)
	if err != nil {
		return "", p.reporter.Dependency(err, "get_or_create_topic", "SNS")
	}
	p.topicARN.Store(&arn)
	return arn, nil
}

func (p *Provisioner) resolveTopic(ctx context.Context) (string, error) {
	pages := sns.NewListTopicsPaginator(p.topics, &sns.ListTopicsInput{})
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list topics: %w", err)
		}
		for _, t := range out.Topics {
			if arn := aws.ToString(t.TopicArn); strings.Contains(arn, TopicFragment) {
				return arn, nil
			}
		}
	}

	out, err := p.topics.CreateTopic(ctx, &sns.CreateTopicInput{Name: aws.String(p.cfg.TopicName)})
	if err != nil {
		return "", fmt.Errorf("create topic: %w", err)
	}
	arn := aws.ToString(out.TopicArn)
	if arn == "" {
		return "", errors.New("create topic returned no topic arn")
	}
	p.reporter.Success("create_topic", p.cfg.TopicName)
	return arn, nil
}

// Report is the outcome of ProvisionAll, one entry per resource kind.
type Report struct {
	Tables   error
	Bucket   error
	TopicARN string
	Topic    error
}

// Err joins the per-resource failures, nil when everything succeeded.
func (r Report) Err() error {
	return errors.Join(r.Tables, r.Bucket, r.Topic)
}

// ProvisionAll runs every ensure path. A failing resource kind is reported
// and does not stop the others.
func (p *Provisioner) ProvisionAll(ctx context.Context) Report {
	var r Report
	r.Tables = p.EnsureTables(ctx)
	r.Bucket = p.EnsureBucket(ctx)
	r.TopicARN, r.Topic = p.Topic(ctx)
	return r
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func httpStatus(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func isNotFound(err error) bool {
	switch errorCode(err) {
	case "NotFound", "NoSuchBucket":
		return true
	}
	return httpStatus(err) == 404
}

func isForbidden(err error) bool {
	switch errorCode(err) {
	case "Forbidden", "AccessDenied":
		return true
	}
	return httpStatus(err) == 403
}
