package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrSessionExpired   = fmt.Errorf("session expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and transport errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrForbidden          = fmt.Errorf("access forbidden")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrServerError        = fmt.Errorf("server error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrNetwork            = fmt.Errorf("network error")

	// Live update errors
	ErrStreamClosed     = fmt.Errorf("stream closed")
	ErrMalformedMessage = fmt.Errorf("malformed message")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrContentNotReady = fmt.Errorf("content not completed")

	// Generation errors
	ErrGenerationFailed = fmt.Errorf("generation failed")
)
