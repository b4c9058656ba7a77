// Command provision creates the tables, the image bucket and the
// notification topic, waits for the tables to become ACTIVE, then exits. It exits non-zero if any resource could not
// be ensured.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/cloud"
	"github.com/x23379014/MyPOS/internal/config"
	"github.com/x23379014/MyPOS/internal/observability"
	"github.com/x23379014/MyPOS/internal/provision"
	"github.com/x23379014/MyPOS/internal/repository/dynamo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	clients, err := cloud.New(ctx, cfg.AWS)
	if err != nil {
		logger.Error("failed to load aws configuration", "error", err)
		os.Exit(1)
	}

	p := provision.NewProvisioner(provision.Config{
		Region:    cfg.AWS.Region,
		Tables:    dynamo.Tables(cfg.AWS.CustomersTable, cfg.AWS.TransactionsTable),
		Bucket:    cfg.AWS.BucketName,
		TopicName: cfg.AWS.TopicName,
	}, clients.DynamoDB, clients.S3, clients.SNS, apperr.NewReporter(logger))

	report := p.ProvisionAll(ctx)
	if report.Tables == nil {
		report.Tables = p.WaitForTables(ctx, clients.DynamoDB, time.Minute)
	}
	logResult(logger, "tables", report.Tables)
	logResult(logger, "bucket", report.Bucket)
	logResult(logger, "topic", report.Topic, "topic_arn", report.TopicARN)

	if err := report.Err(); err != nil {
		logger.Error("provisioning incomplete", "error", err)
		os.Exit(1)
	}
	logger.Info("provisioning complete")
}

func logResult(logger *slog.Logger, resource string, err error, attrs ...any) {
	attrs = append([]any{"resource", resource}, attrs...)
	if err != nil {
		logger.Error("resource not ready", append(attrs, "error", err)...)
		return
	}
	logger.Info("resource ready", attrs...)
}
