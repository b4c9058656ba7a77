package apperr

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// Classifier maps a raw dependency failure to a Kind. Operation and resource
// are passed through for classifiers that need them; the defaults ignore them.
type Classifier func(err error, operation, resource string) Kind

var (
	credentialTokens = []string{
		"NoCredentialProviders",
		"NoCredentialsError",
		"Credentials",
		"credentials",
	}
	notFoundTokens = []string{
		"ResourceNotFoundException",
		"does not exist",
		"NoSuchBucket",
		"NotFound",
	}
	accessTokens = []string{
		"AccessDenied",
		"Forbidden",
		"UnauthorizedOperation",
	}
)

// Classify is the default keyword heuristic over the error text. It is a
// best-effort match and can misclassify messages that happen to contain a
// token.
func Classify(err error, _, _ string) Kind {
	if err == nil {
		return KindService
	}
	return classifyText(err.Error())
}

func classifyText(msg string) Kind {
	switch {
	case containsAny(msg, credentialTokens):
		return KindCredentials
	case containsAny(msg, notFoundTokens):
		return KindNotFound
	case containsAny(msg, accessTokens):
		return KindAccessDenied
	default:
		return KindService
	}
}

// ClassifyCode matches the structured API error code when the SDK exposes
// one and falls back to Classify otherwise.
func ClassifyCode(err error, operation, resource string) Kind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException", "NoSuchBucket", "NotFound", "NoSuchKey":
			return KindNotFound
		case "AccessDenied", "AccessDeniedException", "Forbidden", "AuthorizationError", "UnauthorizedOperation":
			return KindAccessDenied
		case "UnrecognizedClientException", "InvalidClientTokenId", "ExpiredToken", "ExpiredTokenException":
			return KindCredentials
		}
	}
	return Classify(err, operation, resource)
}

// classifyPublish maps a publish failure onto the publish sub-taxonomy. ok is
// false when the failure does not belong to it.
func classifyPublish(err error) (Kind, bool) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NotFoundException":
		return KindTopicNotFound, true
	case "AuthorizationError", "AuthorizationErrorException", "AccessDenied":
		return KindAuthorization, true
	case "InvalidParameter", "InvalidParameterException", "InvalidParameterValue":
		return KindInvalidParameter, true
	}
	return "", false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
