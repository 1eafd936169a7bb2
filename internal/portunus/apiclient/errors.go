package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any APIError with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches any APIError with status 404.
	ErrNotFound = errors.New("not found")
)

const defaultErrorMessage = "Request failed"

// APIError is a non-2xx backend response. Message is the human-readable
// text from the error envelope.
type APIError struct {
	StatusCode int
	Endpoint   string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

func (e *APIError) describe() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Endpoint, e.Message)
}
