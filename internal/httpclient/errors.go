package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized matches a 401 response. Forced logout has already run by
	// the time a caller sees it.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRequestFailed matches any other transport or server failure.
	ErrRequestFailed = errors.New("request failed")

	// ErrTimeout matches a request that hit the client timeout or context deadline.
	ErrTimeout = errors.New("request timed out")
)

// APIError is a response with status >= 400.
type APIError struct {
	StatusCode int
	// Detail is the server-provided message, if any.
	Detail string
	Body   []byte
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Is maps the status code onto the error kinds.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrRequestFailed:
		return e.StatusCode != http.StatusUnauthorized
	}
	return false
}

// errorResponse is the server's error envelope. detail is either a string or a
// list of validation errors.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type validationError struct {
	Msg string `json:"msg"`
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Detail:     parseDetail(body),
		Body:       body,
	}
}

func parseDetail(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(resp.Detail, &detail); err == nil {
		return detail
	}

	var list []validationError
	if err := json.Unmarshal(resp.Detail, &list); err == nil && len(list) > 0 {
		return list[0].Msg
	}
	return ""
}

// Detail returns the server-provided message carried by err, or "".
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

func transportError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrRequestFailed, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
