package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

const (
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// RateLimiterStats provides statistics about rate limiter usage
type RateLimiterStats struct {
	RemainingRequests int           `json:"remaining_requests"`
	ResetTime         time.Time     `json:"reset_time"`
	CurrentDelay      time.Duration `json:"current_delay"`
	TotalWaits        int64         `json:"total_waits"`
	TotalDelayTime    time.Duration `json:"total_delay_time"`
}

// RateLimiterConfig configures the rate limiter behavior
type RateLimiterConfig struct {
	// MinInterval is the minimum time between two requests
	MinInterval time.Duration

	// MinRemainingRequests is the threshold below which the remaining requests
	// are spread evenly until the limit resets
	MinRemainingRequests int

	// MaxDelay caps a single wait
	MaxDelay time.Duration
}

// DefaultRateLimiterConfig returns a default rate limiter configuration
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MinRemainingRequests: 100,
		MaxDelay:             5 * time.Minute,
	}
}

// RateLimiter paces API calls using the primary rate limit GitHub reports on every response
type RateLimiter struct {
	config RateLimiterConfig
	mu     sync.Mutex

	// remaining is -1 until the first response is seen
	remaining int
	resetTime time.Time
	lastCall  time.Time

	stats RateLimiterStats
	now   func() time.Time
}

// NewRateLimiter creates a rate limiter
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		config:    config,
		remaining: -1,
		now:       time.Now,
	}
}

// Wait blocks until it's safe to make an API call
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	delay := rl.calculateDelay()
	if delay > 0 {
		rl.stats.TotalWaits++
		rl.stats.TotalDelayTime += delay
	}
	rl.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(delay):
		}
	}

	rl.mu.Lock()
	rl.lastCall = rl.now()
	rl.mu.Unlock()
	return nil
}

// UpdateLimits records the remaining requests and the time the limit resets
func (rl *RateLimiter) UpdateLimits(remaining int, resetTime time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.remaining = remaining
	rl.resetTime = resetTime
	rl.stats.RemainingRequests = remaining
	rl.stats.ResetTime = resetTime
}

// UpdateFromHeader reads the rate limit headers of a response. Responses
// without them are ignored.
func (rl *RateLimiter) UpdateFromHeader(header http.Header) {
	remaining, err := strconv.Atoi(header.Get(headerRateRemaining))
	if err != nil {
		return
	}
	reset, err := strconv.ParseInt(header.Get(headerRateReset), 10, 64)
	if err != nil {
		return
	}
	rl.UpdateLimits(remaining, time.Unix(reset, 0))
}

// GetDelay returns the current delay before the next API call
func (rl *RateLimiter) GetDelay() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return rl.calculateDelay()
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() RateLimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := rl.stats
	stats.CurrentDelay = rl.calculateDelay()
	return stats
}

// calculateDelay calculates the delay needed before the next API call
func (rl *RateLimiter) calculateDelay() time.Duration {
	now := rl.now()

	var delay time.Duration
	if !rl.lastCall.IsZero() && rl.config.MinInterval > 0 {
		if since := now.Sub(rl.lastCall); since < rl.config.MinInterval {
			delay = rl.config.MinInterval - since
		}
	}

	// Unknown limit, or the window already reset
	if rl.remaining < 0 || !now.Before(rl.resetTime) {
		return delay
	}

	var throttle time.Duration
	switch {
	case rl.remaining == 0:
		throttle = rl.resetTime.Sub(now)
	case rl.remaining < rl.config.MinRemainingRequests:
		throttle = rl.resetTime.Sub(now) / time.Duration(rl.remaining)
	}

	delay = max(delay, throttle)
	if rl.config.MaxDelay > 0 && delay > rl.config.MaxDelay {
		delay = rl.config.MaxDelay
	}
	return delay
}

// rateLimitTransport waits on the limiter before each request and feeds it the
// rate limit headers of each response
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *RateLimiter
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	t.limiter.UpdateFromHeader(resp.Header)
	return resp, nil
}
