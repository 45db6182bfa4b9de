package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/desertthunder/acs/internal/shared"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestStatusErrors(t *testing.T) {
	tc := []struct {
		name     string
		status   int
		body     string
		category Category
		message  string
		sentinel error
	}{
		{"Unauthorized", 401, `{}`, CategoryUnauthorized, "Unauthorized, please login again", shared.ErrUnauthorized},
		{"Forbidden", 403, `{"message":"nope"}`, CategoryForbidden, "Access forbidden", shared.ErrForbidden},
		{"Not Found", 404, ``, CategoryNotFound, "Resource not found", shared.ErrNotFound},
		{"Server Error", 500, `{}`, CategoryServer, "Server error, try again later", shared.ErrServerError},
		{"Bad Gateway", 502, `<html>`, CategoryServer, "Server error, try again later", shared.ErrServerError},
		{"Bad Request With Message", 400, `{"message":"prompt is too long"}`, CategoryRequest, "prompt is too long", shared.ErrAPIRequest},
		{"Conflict With Error Field", 409, `{"error":"email already registered"}`, CategoryRequest, "email already registered", shared.ErrAPIRequest},
		{"Unprocessable Without Body", 422, ``, CategoryRequest, "An unexpected error occurred", shared.ErrAPIRequest},
		{"Redirect", 302, ``, CategoryUnknown, "An unexpected error occurred", shared.ErrAPIRequest},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := newStatusError(tt.status, []byte(tt.body))
			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.UserMessage != tt.message {
				t.Errorf("expected user message %q, got %q", tt.message, err.UserMessage)
			}
			if err.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, err.Status)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected error to wrap %v", tt.sentinel)
			}
		})
	}
}

func TestTransportErrors(t *testing.T) {
	t.Run("Deadline Exceeded", func(t *testing.T) {
		err := newTransportError(fmt.Errorf("do: %w", context.DeadlineExceeded))
		if err.Category != CategoryTimeout || err.UserMessage != "Request timeout" {
			t.Errorf("unexpected mapping: %+v", err)
		}
		if !errors.Is(err, shared.ErrTimeout) {
			t.Error("expected ErrTimeout")
		}
	})

	t.Run("Client Timeout", func(t *testing.T) {
		err := newTransportError(&url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}})
		if err.Category != CategoryTimeout {
			t.Errorf("expected timeout, got %s", err.Category)
		}
	})

	t.Run("Connection Refused", func(t *testing.T) {
		opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		err := newTransportError(&url.Error{Op: "Get", URL: "http://x", Err: opErr})
		if err.Category != CategoryNetwork || err.UserMessage != "Network error" {
			t.Errorf("unexpected mapping: %+v", err)
		}
		if !errors.Is(err, shared.ErrNetwork) {
			t.Error("expected ErrNetwork")
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		err := newTransportError(context.Canceled)
		if err.Category != CategoryUnknown || !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected mapping: %+v", err)
		}
	})

	t.Run("Other", func(t *testing.T) {
		err := newTransportError(errors.New("boom"))
		if err.Category != CategoryUnknown || err.UserMessage != "An unexpected error occurred" {
			t.Errorf("unexpected mapping: %+v", err)
		}
	})
}

func TestAPIErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("listing threads: %w", newStatusError(404, nil))

	apiErr, ok := AsAPIError(wrapped)
	if !ok {
		t.Fatal("expected APIError in chain")
	}
	if apiErr.Category != CategoryNotFound {
		t.Errorf("expected not_found, got %s", apiErr.Category)
	}
	if !IsCategory(wrapped, CategoryNotFound) {
		t.Error("expected IsCategory to match")
	}
	if IsCategory(errors.New("plain"), CategoryNotFound) {
		t.Error("expected IsCategory to reject plain errors")
	}

	expired := newSessionExpiredError(errors.New("refresh rejected"))
	if expired.Category != CategorySessionExpired || !errors.Is(expired, shared.ErrSessionExpired) {
		t.Errorf("unexpected session expired error: %+v", expired)
	}
}
