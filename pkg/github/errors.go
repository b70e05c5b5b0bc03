package github

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
	"gitlab.com/tozd/go/errors"
)

// ErrorType represents different categories of GitHub API errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// ErrBlobMismatch is returned when the API reports a blob SHA that does not
// match the hash of the uploaded content
var ErrBlobMismatch = errors.Base("blob sha mismatch")

// GitHubError is the error every Client method returns. Resource names what
// the call was about, e.g. "README.md in acme/widgets".
type GitHubError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Cause      error     `json:"-"`
	Resource   string    `json:"resource,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Retryable  bool      `json:"retryable"`
}

func (e *GitHubError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Resource, e.Type, e.Message)
}

func (e *GitHubError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether repeating the call may succeed
func (e *GitHubError) IsRetryable() bool {
	return e.Retryable
}

// NewGitHubError creates a GitHubError of the given type
func NewGitHubError(errorType ErrorType, message string, cause error) *GitHubError {
	return &GitHubError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableErrorType(errorType),
	}
}

// IsNotFound reports whether err is a GitHub 404, wrapped or not
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.Type == ErrorTypeNotFound
	}
	return statusOf(err) == http.StatusNotFound
}

// ErrorTypeOf returns the error category of err, or ErrorTypeUnknown
func ErrorTypeOf(err error) ErrorType {
	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.Type
	}
	return ErrorTypeUnknown
}

func statusOf(err error) int {
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}
	return 0
}

// statusError describes how a response status maps onto an ErrorType.
// apiMessage prefers the message GitHub sent over the fixed one.
type statusError struct {
	errorType  ErrorType
	message    string
	apiMessage bool
}

var statusErrors = map[int]statusError{
	http.StatusUnauthorized: {errorType: ErrorTypeAuth, message: "Authentication failed. Please check your GITHUB_TOKEN"},
	http.StatusForbidden:    {errorType: ErrorTypePermission, message: "Insufficient permissions. The token needs the repo scope"},
	http.StatusNotFound:     {errorType: ErrorTypeNotFound, message: "Resource not found"},
	http.StatusConflict:     {errorType: ErrorTypeConflict, message: "Resource conflict occurred", apiMessage: true},
	// the merge endpoint answers 405 when the pull request is not mergeable
	http.StatusMethodNotAllowed:    {errorType: ErrorTypeConflict, message: "Operation not allowed", apiMessage: true},
	http.StatusUnprocessableEntity: {errorType: ErrorTypeValidation, message: "Validation failed", apiMessage: true},
	http.StatusInternalServerError: {errorType: ErrorTypeNetwork, message: "GitHub API is temporarily unavailable. Please try again later"},
	http.StatusBadGateway:          {errorType: ErrorTypeNetwork, message: "GitHub API is temporarily unavailable. Please try again later"},
	http.StatusServiceUnavailable:  {errorType: ErrorTypeNetwork, message: "GitHub API is temporarily unavailable. Please try again later"},
	http.StatusGatewayTimeout:      {errorType: ErrorTypeNetwork, message: "GitHub API is temporarily unavailable. Please try again later"},
}

// WrapGitHubError converts an error returned by go-github into a GitHubError.
// A GitHubError passes through, gaining resource if it had none.
func WrapGitHubError(err error, resource string) *GitHubError {
	if err == nil {
		return nil
	}

	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		if ghErr.Resource == "" {
			ghErr.Resource = resource
		}
		return ghErr
	}

	wrapped := classify(err)
	wrapped.Cause = err
	wrapped.Resource = resource
	wrapped.Retryable = isRetryableErrorType(wrapped.Type)
	return wrapped
}

func classify(err error) *GitHubError {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &GitHubError{
			Type:       ErrorTypeRateLimit,
			Message:    fmt.Sprintf("Rate limit exceeded. Reset at %v", rateErr.Rate.Reset.Time),
			StatusCode: http.StatusForbidden,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &GitHubError{
			Type:       ErrorTypeRateLimit,
			Message:    "Secondary rate limit exceeded. Please wait before retrying",
			StatusCode: http.StatusForbidden,
		}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return fromResponse(respErr)
	}

	if isNetworkError(err) {
		return &GitHubError{
			Type:    ErrorTypeNetwork,
			Message: "Network error occurred. Please check your connection and try again",
		}
	}

	return &GitHubError{Type: ErrorTypeUnknown, Message: err.Error()}
}

func fromResponse(respErr *github.ErrorResponse) *GitHubError {
	status := respErr.Response.StatusCode

	// Primary limits usually come back as RateLimitError, but a plain 403
	// mentioning the limit is treated the same.
	if status == http.StatusForbidden && strings.Contains(strings.ToLower(respErr.Message), "rate limit") {
		return &GitHubError{
			Type:       ErrorTypeRateLimit,
			Message:    "GitHub API rate limit exceeded. Please wait before retrying",
			StatusCode: status,
		}
	}

	mapped, ok := statusErrors[status]
	if !ok {
		errorType := ErrorTypeUnknown
		if status >= http.StatusInternalServerError {
			errorType = ErrorTypeNetwork
		}
		return &GitHubError{Type: errorType, Message: respErr.Message, StatusCode: status}
	}

	message := mapped.message
	switch {
	case mapped.errorType == ErrorTypeValidation && len(respErr.Errors) > 0:
		message = fmt.Sprintf("%s: %s", mapped.message, fieldErrors(respErr.Errors))
	case mapped.apiMessage && respErr.Message != "":
		message = respErr.Message
	}

	return &GitHubError{Type: mapped.errorType, Message: message, StatusCode: status}
}

// fieldErrors joins the per-field errors of a 422 response
func fieldErrors(errs []github.Error) string {
	details := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Field != "" {
			details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Message))
		} else {
			details = append(details, e.Message)
		}
	}
	return strings.Join(details, "; ")
}

var networkKeywords = []string{
	"connection refused",
	"connection reset",
	"network is unreachable",
	"no such host",
	"i/o timeout",
	"dial tcp",
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, keyword := range networkKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

func isRetryableErrorType(errorType ErrorType) bool {
	return errorType == ErrorTypeRateLimit || errorType == ErrorTypeNetwork
}
