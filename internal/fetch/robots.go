package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers whether a URL may be fetched according to the host's
// robots.txt. Files are fetched once per host and cached for the run.
type RobotsPolicy struct {
	client    *HTTPClient
	userAgent string
	cache     map[string]*robotstxt.RobotsData
	mu        sync.Mutex
}

// NewRobotsPolicy creates a policy that fetches robots.txt through client
func NewRobotsPolicy(client *HTTPClient, userAgent string) *RobotsPolicy {
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed checks the URL against its host's robots.txt.
// Unreachable or 4xx robots files allow everything; 5xx disallows everything.
func (r *RobotsPolicy) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}

	robots, err := r.getRobots(ctx, parsedURL)
	if err != nil {
		return false, err
	}
	if robots == nil {
		return true, nil
	}

	path := parsedURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsedURL.RawQuery != "" {
		path += "?" + parsedURL.RawQuery
	}

	return robots.TestAgent(path, r.userAgent), nil
}

// getRobots returns the cached robots data for the URL's host, fetching it on
// first use. A nil result means the file could not be retrieved.
func (r *RobotsPolicy) getRobots(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	key := target.Scheme + "://" + target.Host

	r.mu.Lock()
	defer r.mu.Unlock()

	if robots, exists := r.cache[key]; exists {
		return robots, nil
	}

	robotsURL := key + "/robots.txt"
	req, err := r.client.newRequest(ctx, http.MethodGet, robotsURL)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Debug("robots.txt unreachable, allowing all", "url", robotsURL, "error", err)
		r.cache[key] = nil
		return nil, nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		slog.Debug("robots.txt unreadable, allowing all", "url", robotsURL, "error", err)
		robots = nil
	}
	r.cache[key] = robots

	return robots, nil
}
