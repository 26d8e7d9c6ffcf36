package collectorpro

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType classifies a failed request. The set is closed.
type ErrorType string

const (
	ErrorTypeTimeout      ErrorType = "Timeout"
	ErrorTypeUnauthorized ErrorType = "Unauthorized"
	ErrorTypeForbidden    ErrorType = "Forbidden"
	ErrorTypeNotFound     ErrorType = "NotFound"
	ErrorTypeBadRequest   ErrorType = "BadRequest"
	ErrorTypeServer       ErrorType = "ServerError"
	ErrorTypeParse        ErrorType = "ParseError"
)

// Sentinel errors for errors.Is. Matching compares only the Type.
var (
	ErrTimeout      = &ClientError{Type: ErrorTypeTimeout, Message: "request timed out"}
	ErrUnauthorized = &ClientError{Type: ErrorTypeUnauthorized, Message: "unauthorized"}
	ErrForbidden    = &ClientError{Type: ErrorTypeForbidden, Message: "forbidden"}
	ErrNotFound     = &ClientError{Type: ErrorTypeNotFound, Message: "not found"}
	ErrBadRequest   = &ClientError{Type: ErrorTypeBadRequest, Message: "bad request"}
	ErrServerError  = &ClientError{Type: ErrorTypeServer, Message: "server error"}
	ErrParse        = &ClientError{Type: ErrorTypeParse, Message: "malformed response body"}
)

// ErrInvalidConfig is returned when a client or config fails validation.
var ErrInvalidConfig = errors.New("collectorpro: invalid configuration")

// ClientError represents an error from the client
type ClientError struct {
	Type       ErrorType
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	Endpoint   string
	StatusCode int
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries+1)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Endpoint != "" {
		info += fmt.Sprintf("Endpoint: %s\n", e.Endpoint)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries+1)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// KindOf returns the ErrorType carried by err, or "" if err is not a
// *ClientError.
func KindOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ""
}

// IsTransient reports whether a later attempt might succeed: timeouts and
// server/network failures. 4xx classes and parse failures are terminal.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case ErrorTypeTimeout, ErrorTypeServer:
		return true
	default:
		return false
	}
}

// classifyStatus maps a non-2xx status to its error type.
func classifyStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case status == http.StatusForbidden:
		return ErrorTypeForbidden
	case status == http.StatusNotFound:
		return ErrorTypeNotFound
	case status >= 500:
		return ErrorTypeServer
	default:
		return ErrorTypeBadRequest
	}
}
