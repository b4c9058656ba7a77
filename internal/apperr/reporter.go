package apperr

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeSuccess = "success"

// Reporter constructs classified errors and logs them as a side effect.
// It is safe for concurrent use once configured.
type Reporter struct {
	logger   *slog.Logger
	classify Classifier
	ops      *prometheus.CounterVec
	now      func() time.Time
}

// NewReporter returns a Reporter using the keyword classifier.
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reporter{
		logger:   logger,
		classify: Classify,
		now:      time.Now,
	}
}

// WithClassifier swaps the classification strategy.
func (r *Reporter) WithClassifier(c Classifier) *Reporter {
	if c != nil {
		r.classify = c
	}
	return r
}

// WithMetrics attaches a counter labelled by operation and outcome. Outcome is
// "success" or the error kind.
func (r *Reporter) WithMetrics(ops *prometheus.CounterVec) *Reporter {
	r.ops = ops
	return r
}

// WithClock overrides the timestamp source.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	if now != nil {
		r.now = now
	}
	return r
}

// Logger returns the logger errors are written to.
func (r *Reporter) Logger() *slog.Logger {
	return r.logger
}

// Dependency classifies a failure from a cloud dependency.
func (r *Reporter) Dependency(err error, operation, resource string) *Error {
	kind := r.classify(err, operation, resource)
	original := errText(err)

	var msg string
	switch kind {
	case KindCredentials:
		msg = "cloud credentials not found; check the configured credential chain"
	case KindNotFound:
		msg = fmt.Sprintf("resource not found: %s", resource)
	case KindAccessDenied:
		msg = fmt.Sprintf("access denied to resource: %s", resource)
	default:
		kind = KindService
		msg = fmt.Sprintf("error during %s: %s", operation, original)
	}

	return r.emit(&Error{
		Kind:      kind,
		Message:   msg,
		Operation: operation,
		Resource:  resource,
		Original:  original,
		Cause:     err,
		Time:      r.now(),
	})
}

// Publish classifies a notification publish failure. Failures outside the
// publish sub-taxonomy fall back to Dependency.
func (r *Reporter) Publish(err error, operation, resource string) *Error {
	kind, ok := classifyPublish(err)
	if !ok {
		return r.Dependency(err, operation, resource)
	}
	original := errText(err)

	var msg string
	switch kind {
	case KindTopicNotFound:
		msg = "notification topic not found; run the provision command to create it: " + original
	case KindAuthorization:
		msg = "notification publish denied; check permissions for sns:Publish: " + original
	case KindInvalidParameter:
		msg = "invalid notification parameters: " + original
	}

	return r.emit(&Error{
		Kind:      kind,
		Message:   msg,
		Operation: operation,
		Resource:  resource,
		Original:  original,
		Cause:     err,
		Time:      r.now(),
	})
}

// Validation builds a validation error directly, without inspecting any
// dependency failure.
func (r *Reporter) Validation(field, message string) *Error {
	e := &Error{
		Kind:    KindValidation,
		Message: message,
		Field:   field,
		Time:    r.now(),
	}
	r.logger.Warn("validation error",
		"kind", e.Kind,
		"field", field,
		"message", message,
	)
	r.count("validate", e.Kind)
	return e
}

// Persistence wraps a failure from the local relational store.
func (r *Reporter) Persistence(err error, operation string) *Error {
	original := errText(err)
	return r.emit(&Error{
		Kind:      KindPersistence,
		Message:   fmt.Sprintf("database error during %s: %s", operation, original),
		Operation: operation,
		Original:  original,
		Cause:     err,
		Time:      r.now(),
	})
}

// Success records a completed operation. It never produces an error.
func (r *Reporter) Success(operation, resource string) {
	if resource != "" {
		r.logger.Info("operation succeeded", "operation", operation, "resource", resource)
	} else {
		r.logger.Info("operation succeeded", "operation", operation)
	}
	if r.ops != nil {
		r.ops.WithLabelValues(operation, outcomeSuccess).Inc()
	}
}

func (r *Reporter) emit(e *Error) *Error {
	r.logger.Error("classified error",
		"kind", e.Kind,
		"operation", e.Operation,
		"resource", e.Resource,
		"message", e.Message,
		"error", e.Original,
	)
	r.count(e.Operation, e.Kind)
	return e
}

func (r *Reporter) count(operation string, kind Kind) {
	if r.ops != nil {
		r.ops.WithLabelValues(operation, string(kind)).Inc()
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
