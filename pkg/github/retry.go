package github

import (
	"context"
	"time"

	"gitlab.com/tozd/go/errors"
)

// RetryConfig controls WithRetry. The zero value never retries.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the backoff used by --max-retries
func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryableOperation is a single API call
type RetryableOperation func() error

// WithRetry runs operation, repeating it after rate limit and network errors
// up to config.MaxRetries times with exponential backoff
func WithRetry(ctx context.Context, operation RetryableOperation, config RetryConfig) error {
	err := operation()
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxRetries && shouldRetry(err); attempt++ {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(delay):
		}

		delay = min(time.Duration(float64(delay)*config.BackoffFactor), config.MaxDelay)
		err = operation()
		if err == nil {
			return nil
		}
		if attempt == config.MaxRetries && shouldRetry(err) {
			return errors.Errorf("operation failed after %d retries: %w", config.MaxRetries, err)
		}
	}

	return err
}

func shouldRetry(err error) bool {
	var ghErr *GitHubError
	return err != nil && errors.As(err, &ghErr) && ghErr.IsRetryable()
}
