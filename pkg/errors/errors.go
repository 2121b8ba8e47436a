package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType categorizes different error types
type ErrorType string

const (
	// Network errors
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeHTTP       ErrorType = "http"

	// Authentication errors
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeUnauthorized   ErrorType = "unauthorized"
	ErrorTypeForbidden      ErrorType = "forbidden"
	ErrorTypeSessionExpired ErrorType = "session_expired"

	// Validation errors
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeFileNotFound  ErrorType = "file_not_found"
	ErrorTypeInvalidFormat ErrorType = "invalid_format"

	// Server errors
	ErrorTypeServer      ErrorType = "server"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeUnavailable ErrorType = "unavailable"

	// Media errors
	ErrorTypeUpload      ErrorType = "upload"
	ErrorTypeMediaFormat ErrorType = "media_format"
	ErrorTypeMediaSize   ErrorType = "media_size"

	// Unknown errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// CLIError represents a structured error with context
type CLIError struct {
	Type       ErrorType
	Message    string
	Cause      error
	Suggestion string
	StatusCode int
	RetryAfter int
}

// Error implements the error interface
func (e *CLIError) Error() string {
	return e.Message
}

// WithSuggestion adds a helpful suggestion to the error
func (e *CLIError) WithSuggestion(suggestion string) *CLIError {
	e.Suggestion = suggestion
	return e
}

// HasSuggestion returns true if the error has a suggestion
func (e *CLIError) HasSuggestion() bool {
	return e.Suggestion != ""
}

// Unwrap returns the underlying error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// NewCLIError creates a new CLI error
func NewCLIError(errorType ErrorType, message string, cause error) *CLIError {
	return &CLIError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NetworkError creates a network error
func NetworkError(message string) *CLIError {
	err := NewCLIError(ErrorTypeNetwork, message, nil)
	err.Suggestion = "Check your internet connection and try again."
	return err
}

// TimeoutError creates a timeout error
func TimeoutError() *CLIError {
	err := NewCLIError(ErrorTypeTimeout, "Request timed out", nil)
	err.Suggestion = "The backend is taking too long to respond. Try again in a moment."
	return err
}

// AuthError creates an authentication error
func AuthError(message string) *CLIError {
	err := NewCLIError(ErrorTypeAuth, message, nil)
	err.Suggestion = "Try logging in again with 'socialhub auth login'"
	return err
}

// SessionExpiredError creates a session expired error
func SessionExpiredError() *CLIError {
	err := NewCLIError(ErrorTypeSessionExpired, "Your session has expired", nil)
	err.Suggestion = "Run 'socialhub auth login' to refresh your session."
	return err
}

// UnauthorizedError creates an unauthorized error
func UnauthorizedError() *CLIError {
	err := NewCLIError(ErrorTypeUnauthorized, "You don't have permission to perform this action", nil)
	err.Suggestion = "Make sure you're logged in with an account that has the required permissions."
	return err
}

// ForbiddenError creates a forbidden error
func ForbiddenError() *CLIError {
	err := NewCLIError(ErrorTypeForbidden, "Access denied", nil)
	err.Suggestion = "Contact an administrator if you believe this is an error."
	return err
}

// ValidationError creates a validation error
func ValidationError(field, reason string) *CLIError {
	message := fmt.Sprintf("Validation error: %s - %s", field, reason)
	return NewCLIError(ErrorTypeValidation, message, nil)
}

// FileNotFoundError creates a file not found error
func FileNotFoundError(path string) *CLIError {
	err := NewCLIError(ErrorTypeFileNotFound, fmt.Sprintf("File not found: %s", path), nil)
	err.Suggestion = "Check the file path and try again."
	return err
}

// MediaFormatError creates a media format error
func MediaFormatError(ext string, supported []string) *CLIError {
	err := NewCLIError(ErrorTypeMediaFormat,
		fmt.Sprintf("Unsupported media format: %s", ext),
		nil)
	err.Suggestion = fmt.Sprintf("Supported formats: %s.", strings.Join(supported, ", "))
	return err
}

// MediaSizeError creates a media size error
func MediaSizeError(sizeMB float64, maxMB int) *CLIError {
	err := NewCLIError(ErrorTypeMediaSize,
		fmt.Sprintf("File too large: %.1f MB (max: %d MB)", sizeMB, maxMB),
		nil)
	err.Suggestion = fmt.Sprintf("Compress the file to under %d MB and try again.", maxMB)
	return err
}

// UploadError creates an upload error that wraps the last chunk failure
func UploadError(message string, cause error) *CLIError {
	err := NewCLIError(ErrorTypeUpload, message, cause)
	err.Suggestion = "Check your connection and run the upload again."
	return err
}

// ServerError creates a server error
func ServerError() *CLIError {
	err := NewCLIError(ErrorTypeServer, "Server error", nil)
	err.Suggestion = "The backend encountered an error. Try again in a few moments."
	return err
}

// UnavailableError is returned while the backend circuit is open
func UnavailableError(cause error) *CLIError {
	err := NewCLIError(ErrorTypeUnavailable, "Backend temporarily unavailable", cause)
	err.Suggestion = "Too many recent failures. Wait a little before retrying."
	return err
}

// NotFoundError creates a not found error
func NotFoundError(resourceType, identifier string) *CLIError {
	err := NewCLIError(ErrorTypeNotFound,
		fmt.Sprintf("%s not found: %s", resourceType, identifier),
		nil)
	return err
}

// RateLimitError creates a rate limit error
func RateLimitError(retryAfter int) *CLIError {
	err := NewCLIError(ErrorTypeRateLimit,
		"Rate limit exceeded. Too many requests.",
		nil)
	err.RetryAfter = retryAfter
	err.Suggestion = fmt.Sprintf("Please wait %d seconds before trying again.", retryAfter)
	return err
}

// ConflictError creates a conflict error
func ConflictError(message string) *CLIError {
	err := NewCLIError(ErrorTypeConflict, message, nil)
	err.Suggestion = "This resource already exists. Try a different name or identifier."
	return err
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

type retryAfterer interface {
	RetryAfterSeconds() int
}

// FromStatus maps an HTTP status code to a CLIError
func FromStatus(status int, message string, retryAfter int) *CLIError {
	var cliErr *CLIError
	switch {
	case status == http.StatusUnauthorized:
		cliErr = AuthError(orDefault(message, "Invalid or missing credentials"))
	case status == http.StatusForbidden:
		cliErr = ForbiddenError()
	case status == http.StatusNotFound:
		cliErr = NotFoundError("Resource", orDefault(message, "unknown"))
	case status == http.StatusConflict:
		cliErr = ConflictError(orDefault(message, "Conflict"))
	case status == http.StatusTooManyRequests:
		if retryAfter <= 0 {
			retryAfter = 60
		}
		cliErr = RateLimitError(retryAfter)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		cliErr = NewCLIError(ErrorTypeValidation, orDefault(message, "Invalid request"), nil)
	case status == http.StatusRequestEntityTooLarge:
		cliErr = NewCLIError(ErrorTypeMediaSize, orDefault(message, "Payload too large"), nil)
	case status >= 500:
		cliErr = ServerError()
	default:
		cliErr = NewCLIError(ErrorTypeHTTP, orDefault(message, http.StatusText(status)), nil)
	}
	cliErr.StatusCode = status
	return cliErr
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// CategorizeError converts a standard error into a CLIError
func CategorizeError(err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		retryAfter := 0
		var ra retryAfterer
		if errors.As(err, &ra) {
			retryAfter = ra.RetryAfterSeconds()
		}
		categorized := FromStatus(sc.HTTPStatus(), "", retryAfter)
		if categorized.Type == ErrorTypeHTTP || categorized.Type == ErrorTypeValidation ||
			categorized.Type == ErrorTypeConflict {
			categorized.Message = err.Error()
		}
		categorized.Cause = err
		return categorized
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError()
	}

	// Categorize based on error message
	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "connection refused"):
		return NetworkError("Could not connect to the backend. Make sure it's running.")
	case strings.Contains(errMsg, "no such host"):
		return NetworkError("Could not resolve the backend host.")
	case strings.Contains(errMsg, "timeout"):
		return TimeoutError()
	default:
		return NewCLIError(ErrorTypeUnknown, errMsg, err)
	}
}

// FormatError returns a user-friendly error message
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	cliErr := CategorizeError(err)
	var sb strings.Builder

	sb.WriteString("✗ Error")
	if cliErr.Type != ErrorTypeUnknown {
		sb.WriteString(" (")
		sb.WriteString(string(cliErr.Type))
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(cliErr.Message)
	sb.WriteString("\n")

	if cliErr.HasSuggestion() {
		sb.WriteString("\n💡 Suggestion: ")
		sb.WriteString(cliErr.Suggestion)
		sb.WriteString("\n")
	}

	if cliErr.Type == ErrorTypeRateLimit && cliErr.RetryAfter > 0 {
		sb.WriteString("\n⏱  Retry in: ")
		sb.WriteString(fmt.Sprintf("%d seconds\n", cliErr.RetryAfter))
	}

	return sb.String()
}
