// Package fetch retrieves pages over HTTP with retries, per-host pacing and
// an optional robots.txt policy.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultBackoffFactor is the base of the exponential retry backoff
	DefaultBackoffFactor = 700 * time.Millisecond
	// DefaultMaxBackoff caps a single retry sleep
	DefaultMaxBackoff = 120 * time.Second

	maxRedirects = 10
	maxBodySize  = 32 << 20

	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

var errTooManyRedirects = errors.New("too many redirects")

// Config holds everything the client needs; callers build it explicitly.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	Retries        int
	BackoffFactor  time.Duration
	MaxBackoff     time.Duration
	Headers        map[string]string // Applied last, so they override standard headers
	AcceptLanguage string
}

// Page is a successfully fetched document
type Page struct {
	URL         string // Requested URL
	FinalURL    string // URL after redirects
	Body        string // Decoded to UTF-8
	StatusCode  int
	ContentType string
	Attempts    int
	TTFB        time.Duration // Time to first byte of the final response
	Elapsed     time.Duration // Including retries, excluding pacing
}

// StatusError reports a fetch that ended without a 2xx response.
// StatusCode is zero when the failure happened at the network level.
type StatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// RetryObserver is told about every retry; reason is the status code or "network"
type RetryObserver interface {
	ObserveRetry(reason string)
}

// HTTPClient fetches pages for one run. Cookies persist across requests.
type HTTPClient struct {
	client   *http.Client
	cfg      Config
	limiter  *RateLimiter
	observer RetryObserver
	now      func() time.Time
}

// NewHTTPClient creates a client from an explicit configuration
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be non-negative, got %d", cfg.Retries)
	}
	if cfg.BackoffFactor < 0 || cfg.MaxBackoff < 0 {
		return nil, fmt.Errorf("backoff durations must be non-negative")
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	return &HTTPClient{
		client:  client,
		cfg:     cfg,
		limiter: NewRateLimiter(),
		now:     time.Now,
	}, nil
}

// SetRetryObserver registers a hook notified on every retry
func (h *HTTPClient) SetRetryObserver(observer RetryObserver) {
	h.observer = observer
}

// Fetch waits for the host's pacing slot when pause is positive, then GETs
// the URL with retries. Non-2xx results come back as *StatusError.
func (h *HTTPClient) Fetch(ctx context.Context, rawURL string, pause time.Duration) (*Page, error) {
	if pause > 0 {
		if err := h.limiter.Wait(ctx, rawURL, pause); err != nil {
			return nil, err
		}
	}

	req, err := h.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}

	var connStart, firstByte time.Time
	trace := &httptrace.ClientTrace{
		GetConn: func(string) {
			connStart = time.Now()
		},
		GotFirstResponseByte: func() {
			firstByte = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	resp, attempts, err := h.doWithRetry(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &StatusError{URL: rawURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := readBody(resp.Body, contentType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}

	page := &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Attempts:    attempts,
		Elapsed:     time.Since(start),
	}
	if !firstByte.IsZero() && !connStart.IsZero() {
		page.TTFB = firstByte.Sub(connStart)
	}
	return page, nil
}

// Close releases idle connections
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}

// newRequest builds a request carrying the standard and custom headers
func (h *HTTPClient) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.cfg.UserAgent)
	req.Header.Set("Accept", acceptHeader)
	if h.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", h.cfg.AcceptLanguage)
	}
	req.Header.Set("Connection", "keep-alive")

	for name, value := range h.cfg.Headers {
		req.Header.Set(name, value)
	}

	return req, nil
}

// doWithRetry sends the request, retrying transient failures with
// exponential backoff. The returned response body is unread.
func (h *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, int, error) {
	retries := h.cfg.Retries
	if !isIdempotent(req.Method) {
		retries = 0
	}

	var resp *http.Response
	var err error
	attempts := 0
	for retry := 0; retry <= retries; retry++ {
		if retry > 0 {
			wait := h.backoff(retry)
			reason := "network"
			if resp != nil {
				reason = strconv.Itoa(resp.StatusCode)
				if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), h.now()); ok {
					wait = min(d, h.maxBackoff())
				}
				drain(resp)
			}

			slog.Debug("Retrying request", "url", req.URL.String(), "retry", retry, "reason", reason, "wait", wait)
			if h.observer != nil {
				h.observer.ObserveRetry(reason)
			}

			if err := sleep(ctx, wait); err != nil {
				return nil, attempts, err
			}
		}

		attempts++
		resp, err = h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil || !isRetryableError(err) {
				return nil, attempts, err
			}
			resp = nil
			continue
		}
		if !isRetryableStatus(resp.StatusCode) {
			return resp, attempts, nil
		}
	}

	if err != nil {
		return nil, attempts, err
	}
	// Retries exhausted on a retryable status; hand back the last response
	return resp, attempts, nil
}

// backoff returns factor * 2^(retry-1), capped at the maximum
func (h *HTTPClient) backoff(retry int) time.Duration {
	limit := h.maxBackoff()
	d := h.cfg.BackoffFactor
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= limit || d <= 0 {
			return limit
		}
	}
	return min(d, limit)
}

func (h *HTTPClient) maxBackoff() time.Duration {
	if h.cfg.MaxBackoff > 0 {
		return h.cfg.MaxBackoff
	}
	return DefaultMaxBackoff
}

// parseRetryAfter reads delta-seconds or an HTTP-date
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, errTooManyRedirects) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// http.Client wraps everything in *url.Error, which is itself a net.Error;
	// judge the cause so malformed requests are not retried
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func isIdempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// readBody decodes the body to UTF-8 using the declared or sniffed charset
func readBody(body io.Reader, contentType string) (string, error) {
	reader, err := charset.NewReader(io.LimitReader(body, maxBodySize), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(data), nil
}

// drain discards a response that is about to be retried
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// sleep waits for d or until the context ends
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
