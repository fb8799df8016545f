// Package errors provides error handling for herald.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints surfaced to the CLI user
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrThreadNotFound) {
//	    // handle missing thread
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
	GetAllHints = crdb.GetAllHints
)

// Error inspection and marking
var (
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
	Mark   = crdb.Mark
)

// Common sentinel errors for use across herald.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrThreadNotFound indicates no thread handle could be resolved for a job
	// and no lazy-creation context (channel + title) was available.
	ErrThreadNotFound = New("thread not found")

	// ErrAnchorPostFailed indicates the very first top-level post for a job
	// could not be delivered. The anchor message is unrecoverable for that
	// call, so this is surfaced as a hard error rather than an ok:false result.
	ErrAnchorPostFailed = New("anchor post failed")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")
)

// IsThreadNotFound checks if an error is or wraps ErrThreadNotFound.
func IsThreadNotFound(err error) bool {
	return err != nil && Is(err, ErrThreadNotFound)
}

// IsAnchorPostFailed checks if an error is or wraps ErrAnchorPostFailed.
func IsAnchorPostFailed(err error) bool {
	return err != nil && Is(err, ErrAnchorPostFailed)
}
