// Package domain contains the point-of-sale entities and their invariants.
package domain

import "errors"

// Sentinel errors for boundary cases that are not dependency failures.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates the input data is invalid or malformed.
	ErrInvalidInput = errors.New("invalid input")
)
