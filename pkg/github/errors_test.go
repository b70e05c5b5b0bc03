package github

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func apiError(status int, message string, fieldErrs ...github.Error) *github.ErrorResponse {
	return &github.ErrorResponse{
		Response: &http.Response{StatusCode: status},
		Message:  message,
		Errors:   fieldErrs,
	}
}

func TestGitHubError_Error(t *testing.T) {
	withResource := &GitHubError{Type: ErrorTypeNotFound, Message: "Resource not found", Resource: "README.md in acme/widgets"}
	assert.Equal(t, "README.md in acme/widgets (not_found): Resource not found", withResource.Error())

	bare := NewGitHubError(ErrorTypeConflict, "Pull Request is not mergeable", nil)
	assert.Equal(t, "conflict: Pull Request is not mergeable", bare.Error())
}

func TestGitHubError_Unwrap(t *testing.T) {
	cause := apiError(http.StatusNotFound, "Not Found")
	err := WrapGitHubError(cause, "branch develop in acme/gizmos")

	var respErr *github.ErrorResponse
	require.True(t, errors.As(err, &respErr))
	assert.Same(t, cause, respErr)
}

func TestNewGitHubError(t *testing.T) {
	assert.False(t, NewGitHubError(ErrorTypeAuth, "bad token", nil).IsRetryable())
	assert.True(t, NewGitHubError(ErrorTypeRateLimit, "slow down", nil).IsRetryable())
	assert.True(t, NewGitHubError(ErrorTypeNetwork, "offline", nil).IsRetryable())
}

func TestWrapGitHubError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		wantMsg    string
		wantStatus int
		retryable  bool
	}{
		{
			name:       "bad credentials",
			err:        apiError(http.StatusUnauthorized, "Bad credentials"),
			wantType:   ErrorTypeAuth,
			wantMsg:    "Authentication failed. Please check your GITHUB_TOKEN",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "archive without admin rights",
			err:        apiError(http.StatusForbidden, "Must have admin rights to Repository."),
			wantType:   ErrorTypePermission,
			wantMsg:    "Insufficient permissions",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "forbidden by rate limit",
			err:        apiError(http.StatusForbidden, "API rate limit exceeded for user ID 1"),
			wantType:   ErrorTypeRateLimit,
			wantMsg:    "rate limit exceeded",
			wantStatus: http.StatusForbidden,
			retryable:  true,
		},
		{
			name:       "missing branch",
			err:        apiError(http.StatusNotFound, "Not Found"),
			wantType:   ErrorTypeNotFound,
			wantMsg:    "Resource not found",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unmergeable pull request",
			err:        apiError(http.StatusMethodNotAllowed, "Pull Request is not mergeable"),
			wantType:   ErrorTypeConflict,
			wantMsg:    "Pull Request is not mergeable",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "empty repository",
			err:        apiError(http.StatusConflict, "Git Repository is empty."),
			wantType:   ErrorTypeConflict,
			wantMsg:    "Git Repository is empty.",
			wantStatus: http.StatusConflict,
		},
		{
			name:       "conflict without message",
			err:        apiError(http.StatusConflict, ""),
			wantType:   ErrorTypeConflict,
			wantMsg:    "Resource conflict occurred",
			wantStatus: http.StatusConflict,
		},
		{
			name: "pull request without commits",
			err: apiError(http.StatusUnprocessableEntity, "Validation Failed",
				github.Error{Field: "head", Message: "is invalid", Code: "invalid"},
				github.Error{Message: "No commits between develop and update-readme"}),
			wantType:   ErrorTypeValidation,
			wantMsg:    "Validation failed: head: is invalid; No commits between develop and update-readme",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "branch already exists",
			err:        apiError(http.StatusUnprocessableEntity, "Reference already exists"),
			wantType:   ErrorTypeValidation,
			wantMsg:    "Reference already exists",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "bad gateway",
			err:        apiError(http.StatusBadGateway, "Server Error"),
			wantType:   ErrorTypeNetwork,
			wantMsg:    "GitHub API is temporarily unavailable",
			wantStatus: http.StatusBadGateway,
			retryable:  true,
		},
		{
			name:       "unlisted server error",
			err:        apiError(http.StatusHTTPVersionNotSupported, "HTTP Version Not Supported"),
			wantType:   ErrorTypeNetwork,
			wantMsg:    "HTTP Version Not Supported",
			wantStatus: http.StatusHTTPVersionNotSupported,
			retryable:  true,
		},
		{
			name:       "unlisted client error",
			err:        apiError(http.StatusTeapot, "I'm a teapot"),
			wantType:   ErrorTypeUnknown,
			wantMsg:    "I'm a teapot",
			wantStatus: http.StatusTeapot,
		},
		{
			name:       "primary rate limit",
			err:        &github.RateLimitError{Rate: github.Rate{Reset: github.Timestamp{Time: time.Now()}}, Message: "API rate limit exceeded"},
			wantType:   ErrorTypeRateLimit,
			wantMsg:    "Rate limit exceeded",
			wantStatus: http.StatusForbidden,
			retryable:  true,
		},
		{
			name:       "secondary rate limit",
			err:        &github.AbuseRateLimitError{Message: "You have exceeded a secondary rate limit"},
			wantType:   ErrorTypeRateLimit,
			wantMsg:    "Secondary rate limit exceeded",
			wantStatus: http.StatusForbidden,
			retryable:  true,
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp 127.0.0.1:443: connect: connection refused"),
			wantType:  ErrorTypeNetwork,
			wantMsg:   "Network error occurred",
			retryable: true,
		},
		{
			name:     "anything else",
			err:      errors.New("something odd"),
			wantType: ErrorTypeUnknown,
			wantMsg:  "something odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WrapGitHubError(tt.err, "README.md in acme/widgets")

			require.NotNil(t, result)
			assert.Equal(t, tt.wantType, result.Type)
			assert.Contains(t, result.Message, tt.wantMsg)
			assert.Equal(t, tt.wantStatus, result.StatusCode)
			assert.Equal(t, "README.md in acme/widgets", result.Resource)
			assert.Equal(t, tt.retryable, result.IsRetryable())
			assert.ErrorIs(t, result, tt.err)
		})
	}
}

func TestWrapGitHubError_PassesThrough(t *testing.T) {
	original := NewGitHubError(ErrorTypeConflict, "Pull Request is not mergeable", nil)

	wrapped := WrapGitHubError(errors.Errorf("merging: %w", original), "pull request 7 in acme/widgets")
	assert.Same(t, original, wrapped)
	assert.Equal(t, "pull request 7 in acme/widgets", wrapped.Resource)

	// An existing resource is kept
	assert.Equal(t, "pull request 7 in acme/widgets", WrapGitHubError(original, "something else").Resource)
}

func TestWrapGitHubError_Nil(t *testing.T) {
	assert.Nil(t, WrapGitHubError(nil, "anything"))
}

func TestIsNotFound(t *testing.T) {
	notFound := apiError(http.StatusNotFound, "Not Found")

	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsNotFound(WrapGitHubError(notFound, "branch update-readme")))
	assert.True(t, IsNotFound(errors.Errorf("deleting branch: %w", WrapGitHubError(notFound, "branch update-readme"))))
	assert.False(t, IsNotFound(apiError(http.StatusUnauthorized, "Bad credentials")))
	assert.False(t, IsNotFound(NewGitHubError(ErrorTypeAuth, "bad token", nil)))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestErrorTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeConflict, ErrorTypeOf(NewGitHubError(ErrorTypeConflict, "conflict", nil)))
	assert.Equal(t, ErrorTypeNotFound, ErrorTypeOf(errors.Errorf("wrapped: %w", NewGitHubError(ErrorTypeNotFound, "gone", nil))))
	assert.Equal(t, ErrorTypeUnknown, ErrorTypeOf(errors.New("plain")))
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), expected: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), expected: true},
		{name: "no such host", err: errors.New("dial tcp: lookup api.github.com: no such host"), expected: true},
		{name: "i/o timeout", err: errors.New("read tcp: i/o timeout"), expected: true},
		{name: "net.Error", err: &net.DNSError{Err: "server misbehaving", Name: "api.github.com"}, expected: true},
		{name: "cancelled", err: errors.Errorf("request: %w", context.Canceled), expected: false},
		{name: "regular error", err: errors.New("some other error"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isNetworkError(tt.err))
		})
	}
}

func TestIsRetryableErrorType(t *testing.T) {
	retryable := map[ErrorType]bool{
		ErrorTypeRateLimit:  true,
		ErrorTypeNetwork:    true,
		ErrorTypeAuth:       false,
		ErrorTypePermission: false,
		ErrorTypeNotFound:   false,
		ErrorTypeValidation: false,
		ErrorTypeConflict:   false,
		ErrorTypeUnknown:    false,
	}

	for errorType, expected := range retryable {
		assert.Equal(t, expected, isRetryableErrorType(errorType), errorType)
	}
}
