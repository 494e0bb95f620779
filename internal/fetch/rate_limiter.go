package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests per host. A host's limiter starts drained, so
// even the first paced request to a host waits one interval.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to the URL's host may proceed with at least
// delay since the previous one.
func (r *RateLimiter) Wait(ctx context.Context, rawURL string, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	return r.getLimiter(parsedURL.Host, delay).Wait(ctx)
}

// getLimiter gets or creates the limiter for a host and applies the delay
func (r *RateLimiter) getLimiter(host string, delay time.Duration) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := rate.Every(delay)
	if limiter, exists := r.limiters[host]; exists {
		if limiter.Limit() != limit {
			limiter.SetLimit(limit)
		}
		return limiter
	}

	limiter := rate.NewLimiter(limit, 1)
	// Spend the initial burst token
	limiter.Allow()
	r.limiters[host] = limiter

	return limiter
}
