package session

import (
	"errors"
	"net/http"
)

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// RequestError is a non-2xx answer from the API. Message is the server's
// "message" field when the body carried one.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Unwrap maps the status to ErrUnauthorized or ErrNotFound where one applies.
func (e *RequestError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}
