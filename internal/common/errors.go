package common

import "errors"

var (
	// Validation errors raised before any request leaves the process.
	ErrValidation = errors.New("validation error")

	// ErrInvalidToken marks bearer tokens that cannot be decoded.
	ErrInvalidToken = errors.New("invalid token")
)
