// Package notify publishes transaction notifications to the SNS topic.
package notify

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/x23379014/MyPOS/internal/apperr"
)

const (
	// MaxMessageBytes is the SNS message size limit.
	MaxMessageBytes = 262144
	// MaxSubjectChars is the SNS subject length limit.
	MaxSubjectChars = 100

	truncatedBytes  = 262000
	truncatedMarker = "... (truncated)"

	DefaultSubject = "Transaction Notification"
)

// API is the subset of the SNS client used for publishing.
type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// TopicResolver returns the notification topic ARN. *provision.Provisioner
// implements it with a process-wide cache.
type TopicResolver interface {
	Topic(ctx context.Context) (string, error)
}

type Publisher struct {
	client   API
	topics   TopicResolver
	reporter *apperr.Reporter
}

func NewPublisher(client API, topics TopicResolver, reporter *apperr.Reporter) *Publisher {
	if reporter == nil {
		reporter = apperr.NewReporter(nil)
	}
	return &Publisher{client: client, topics: topics, reporter: reporter}
}

// Publish sends message to the topic and returns the provider's message id.
// Oversized bodies and subjects are truncated, not rejected.
func (p *Publisher) Publish(ctx context.Context, message, subject string) (string, error) {
	arn, err := p.topics.Topic(ctx)
	if err != nil {
		return "", err
	}
	if arn == "" {
		return "", p.reporter.Dependency(errors.New("topic arn is empty; the topic may not have been created"), "send_notification", "SNS")
	}
	if subject == "" {
		subject = DefaultSubject
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(arn),
		Message:  aws.String(TruncateMessage(message)),
		Subject:  aws.String(TruncateSubject(subject)),
	})
	if err != nil {
		return "", p.reporter.Publish(err, "send_notification", "SNS")
	}

	id := aws.ToString(out.MessageId)
	if id == "" {
		return "", p.reporter.Dependency(errors.New("publish succeeded but no message id was returned"), "send_notification", "SNS")
	}
	p.reporter.Success("send_notification", id)
	return id, nil
}

// TruncateMessage cuts bodies over MaxMessageBytes down to 262000 bytes,
// backing off to a rune boundary, and appends a marker.
func TruncateMessage(message string) string {
	if len(message) <= MaxMessageBytes {
		return message
	}
	cut := truncatedBytes
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + truncatedMarker
}

// TruncateSubject keeps the first MaxSubjectChars characters.
func TruncateSubject(subject string) string {
	if utf8.RuneCountInString(subject) <= MaxSubjectChars {
		return subject
	}
	n := 0
	for i := range subject {
		if n == MaxSubjectChars {
			return subject[:i]
		}
		n++
	}
	return subject
}
