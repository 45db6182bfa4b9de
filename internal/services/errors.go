package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/desertthunder/acs/internal/shared"
)

// Category is the stable, machine-checkable class of an [APIError].
type Category string

const (
	CategoryUnauthorized   Category = "unauthorized"
	CategorySessionExpired Category = "session_expired"
	CategoryForbidden      Category = "forbidden"
	CategoryNotFound       Category = "not_found"
	CategoryServer         Category = "server"
	CategoryTimeout        Category = "timeout"
	CategoryNetwork        Category = "network"
	CategoryRequest        Category = "request"
	CategoryUnknown        Category = "unknown"
)

const (
	msgUnauthorized   = "Unauthorized, please login again"
	msgSessionExpired = "Session expired, please login again"
	msgForbidden      = "Access forbidden"
	msgNotFound       = "Resource not found"
	msgServer         = "Server error, try again later"
	msgTimeout        = "Request timeout"
	msgNetwork        = "Network error"
	msgUnknown        = "An unexpected error occurred"
)

// APIError is the uniform shape of every failure returned by the [Gateway].
//
// Err is a sentinel from the shared package so callers can use [errors.Is].
type APIError struct {
	Category    Category
	Status      int
	Message     string
	UserMessage string
	Err         error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Category, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// AsAPIError extracts an [APIError] from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsCategory reports whether err carries an [APIError] of the given category.
func IsCategory(err error, c Category) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Category == c
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// newStatusError maps a non-2xx response into an [APIError].
func newStatusError(status int, body []byte) *APIError {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	detail := parsed.Message
	if detail == "" {
		detail = parsed.Error
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	e := &APIError{Status: status, Message: detail}
	switch {
	case status == http.StatusUnauthorized:
		e.Category, e.UserMessage, e.Err = CategoryUnauthorized, msgUnauthorized, shared.ErrUnauthorized
	case status == http.StatusForbidden:
		e.Category, e.UserMessage, e.Err = CategoryForbidden, msgForbidden, shared.ErrForbidden
	case status == http.StatusNotFound:
		e.Category, e.UserMessage, e.Err = CategoryNotFound, msgNotFound, shared.ErrNotFound
	case status >= http.StatusInternalServerError:
		e.Category, e.UserMessage, e.Err = CategoryServer, msgServer, shared.ErrServerError
	case status >= http.StatusBadRequest:
		e.Category, e.Err = CategoryRequest, shared.ErrAPIRequest
		e.UserMessage = msgUnknown
		if parsed.Message != "" {
			e.UserMessage = parsed.Message
		} else if parsed.Error != "" {
			e.UserMessage = parsed.Error
		}
	default:
		e.Category, e.UserMessage, e.Err = CategoryUnknown, msgUnknown, shared.ErrAPIRequest
	}
	return e
}

// newTransportError maps a failure that produced no response.
func newTransportError(err error) *APIError {
	e := &APIError{Message: err.Error()}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		e.Category, e.UserMessage, e.Err = CategoryTimeout, msgTimeout, shared.ErrTimeout
	case errors.Is(err, context.Canceled):
		e.Category, e.UserMessage, e.Err = CategoryUnknown, msgUnknown, err
	case errors.As(err, &netErr):
		e.Category, e.UserMessage, e.Err = CategoryNetwork, msgNetwork, shared.ErrNetwork
	default:
		e.Category, e.UserMessage, e.Err = CategoryUnknown, msgUnknown, shared.ErrAPIRequest
	}
	return e
}

// newSessionExpiredError is returned once the session cannot be recovered.
func newSessionExpiredError(cause error) *APIError {
	msg := "session could not be renewed"
	if cause != nil {
		msg = cause.Error()
	}
	return &APIError{
		Category:    CategorySessionExpired,
		Status:      http.StatusUnauthorized,
		Message:     msg,
		UserMessage: msgSessionExpired,
		Err:         shared.ErrSessionExpired,
	}
}
