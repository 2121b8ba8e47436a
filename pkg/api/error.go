package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
)

// APIError represents an error response from any backend surface
type APIError struct {
	Code       string
	Message    string
	Details    string
	Hint       string
	StatusCode int
	RetryAfter int
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
	if e.Code != "" {
		msg = fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// HTTPStatus exposes the status code for error categorization
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// RetryAfterSeconds exposes the Retry-After hint, if the backend sent one
func (e *APIError) RetryAfterSeconds() int {
	return e.RetryAfter
}

// ErrorResponse covers the REST, auth and storage error bodies
type ErrorResponse struct {
	// REST (PostgREST)
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Details string          `json:"details"`
	Hint    string          `json:"hint"`

	// Auth (GoTrue)
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	ErrorCode        string `json:"error_code"`

	// Storage
	StatusCode json.RawMessage `json:"statusCode"`
}

// ParseError parses an error response from the API
func ParseError(resp *resty.Response) error {
	statusCode := resp.StatusCode()
	apiErr := &APIError{
		StatusCode: statusCode,
		RetryAfter: parseRetryAfter(resp.Header().Get("Retry-After")),
	}

	var body ErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil || len(resp.Body()) == 0 {
		apiErr.Code = "unknown_error"
		apiErr.Message = string(resp.Body())
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(statusCode)
		}
		return apiErr
	}

	apiErr.Code = rawString(body.Code)
	apiErr.Details = body.Details
	apiErr.Hint = body.Hint

	switch {
	case body.Message != "":
		apiErr.Message = body.Message
	case body.ErrorDescription != "":
		apiErr.Message = body.ErrorDescription
	case body.Msg != "":
		apiErr.Message = body.Msg
	case body.Error != "":
		apiErr.Message = body.Error
	default:
		apiErr.Message = http.StatusText(statusCode)
	}

	if apiErr.Code == "" {
		switch {
		case body.ErrorCode != "":
			apiErr.Code = body.ErrorCode
		case body.Error != "" && body.Error != apiErr.Message:
			apiErr.Code = body.Error
		}
	}

	return apiErr
}

// rawString accepts a code sent either as a JSON string or a number
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func parseRetryAfter(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized checks if error is due to missing/invalid authentication
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsForbidden checks if error is due to insufficient permissions
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

// IsNotFound checks if error is due to resource not found
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsConflict checks if error is a unique violation or other conflict
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}

// IsServerError checks if error is due to server error (5xx)
func IsServerError(err error) bool {
	return statusOf(err) >= http.StatusInternalServerError
}

// CheckResponse checks if response is successful and returns error if not
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return ParseError(resp)
	}

	return nil
}

func notFound(message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, Code: "not_found", Message: message}
}
