// Package apperr normalizes failures from the cloud dependencies (key-value
// store, blob store, notification topic, metrics) into one error taxonomy.
//
// Classified errors are built through a Reporter, which logs every error at
// construction time whether or not the caller inspects it afterwards.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the closed set of error categories.
type Kind string

const (
	KindCredentials  Kind = "CREDENTIALS_ERROR"
	KindNotFound     Kind = "RESOURCE_NOT_FOUND"
	KindAccessDenied Kind = "ACCESS_DENIED"
	KindService      Kind = "SERVICE_ERROR"
	KindValidation   Kind = "VALIDATION_ERROR"
	KindPersistence  Kind = "PERSISTENCE_ERROR"

	// Publish sub-taxonomy.
	KindTopicNotFound    Kind = "TOPIC_NOT_FOUND"
	KindAuthorization    Kind = "AUTHORIZATION_ERROR"
	KindInvalidParameter Kind = "INVALID_PARAMETER"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrCredentials      = &Error{Kind: KindCredentials}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAccessDenied     = &Error{Kind: KindAccessDenied}
	ErrService          = &Error{Kind: KindService}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrPersistence      = &Error{Kind: KindPersistence}
	ErrTopicNotFound    = &Error{Kind: KindTopicNotFound}
	ErrAuthorization    = &Error{Kind: KindAuthorization}
	ErrInvalidParameter = &Error{Kind: KindInvalidParameter}
)

// Error is a classified failure.
type Error struct {
	Kind      Kind
	Message   string
	Operation string
	Resource  string
	Field     string
	// Original is the text of the lower-level error, kept even if Cause is nil.
	Original string
	Cause    error
	Time     time.Time
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so that errors.Is(err, apperr.ErrNotFound) works
// for every error of that kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there
// is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
