// Package telemetry emits business metrics to CloudWatch.
package telemetry

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/shopspring/decimal"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/clock"
)

const (
	DefaultNamespace = "MyPOS/Transactions"

	MetricTransactionAmount = "TransactionAmount"
	MetricTransactionCount  = "TransactionCount"
)

// API is the subset of the CloudWatch client the sink uses.
type API interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

type Sink struct {
	client    API
	namespace string
	reporter  *apperr.Reporter
	clock     clock.Clock
}

func NewSink(client API, namespace string, reporter *apperr.Reporter, clk clock.Clock) *Sink {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reporter == nil {
		reporter = apperr.NewReporter(nil)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Sink{client: client, namespace: namespace, reporter: reporter, clock: clk}
}

// Emit records one transaction: its amount, dimensioned by id, and a count
// of one. Both data points carry the same timestamp.
func (s *Sink) Emit(ctx context.Context, amount decimal.Decimal, transactionID string) error {
	now := s.clock.Now()

	_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(s.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(MetricTransactionAmount),
				Value:      aws.Float64(amount.InexactFloat64()),
				Unit:       types.StandardUnitNone,
				Timestamp:  aws.Time(now),
				Dimensions: []types.Dimension{
					{Name: aws.String("TransactionID"), Value: aws.String(transactionID)},
				},
			},
			{
				MetricName: aws.String(MetricTransactionCount),
				Value:      aws.Float64(1),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(now),
			},
		},
	})
	if err != nil {
		return s.reporter.Dependency(err, "put_transaction_metric", "CloudWatch")
	}
	s.reporter.Success("put_transaction_metric", transactionID)
	return nil
}
