package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthenticated means there is no usable session and no refresh was possible.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired means a refresh was attempted and failed. The session
	// has been cleared.
	ErrSessionExpired = errors.New("session expired")

	// ErrMalformedResponse means a 2xx response body was not valid JSON.
	ErrMalformedResponse = errors.New("server returned invalid response")

	// ErrEmptyResponse is the empty-body case of ErrMalformedResponse.
	ErrEmptyResponse = fmt.Errorf("%w: empty body", ErrMalformedResponse)
)

// HTTPError is a non-2xx response that was not resolved by a refresh.
type HTTPError struct {
	Status  int
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed: %d", e.Status)
}

// APIError is a 2xx response whose envelope code is not CodeSuccess.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Code)
}

// IsAuthError reports whether err means the caller must sign in again.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionExpired) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeUnauthorized
}
