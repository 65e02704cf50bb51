// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrIO            = errors.New("io error")
	ErrValidation    = errors.New("validation error")
	ErrNoSelection   = errors.New("no note selected")
)
