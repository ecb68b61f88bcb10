// Package apperr holds the sentinel errors shared across pagebot packages.
package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNoInstruction      = errors.New("no instruction provided")
	ErrInvalidCommand     = errors.New("invalid command")
	ErrInterpreterFailure = errors.New("interpreter failure")
)
