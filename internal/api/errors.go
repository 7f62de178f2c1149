package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tikitihub/tikiti-go/internal/domain"
)

var (
	// ErrTimeout is returned when the backend did not answer within the
	// configured request timeout.
	ErrTimeout = errors.New("request_timeout")
	// ErrUnavailable is returned for transport failures with no HTTP
	// response (connection refused, DNS, TLS).
	ErrUnavailable = errors.New("backend_unavailable")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource_not_found")
)

// StatusError is a non-2xx response. Message holds the backend's error text
// when the body carried one, and is empty otherwise.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error [%d]", e.StatusCode)
	}
	return fmt.Sprintf("backend error [%d]: %s", e.StatusCode, e.Message)
}

func decodeError(resp *http.Response) error {
	var apiErr domain.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	return &StatusError{StatusCode: resp.StatusCode}
}

// UserMessage extracts a display string from an error: the backend-provided
// message for status errors, otherwise the given fallback.
func UserMessage(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
