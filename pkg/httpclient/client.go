// Package httpclient provides an HTTP client with retry and rate-limit
// awareness, used by remote data sources.
package httpclient

import (
	"log/slog"
	"net/http"
	"time"
)

// Backoff classifies how a failed response should be retried.
type Backoff int

const (
	// BackoffNone gives up immediately (2xx handling never reaches here;
	// this covers 4xx and anything else not worth repeating).
	BackoffNone Backoff = iota
	// BackoffFixed walks a short fixed ladder, for flaky 5xx responses.
	BackoffFixed
	// BackoffAdaptive honors rate-limit headers when present and falls
	// back to exponential delays, for 429/503 style throttling.
	BackoffAdaptive
)

// ClassifyFunc maps a response status code to a retry class.
type ClassifyFunc func(status int) Backoff

// RateLimit is what a rate-limit header parser could recover from a
// throttled response.
type RateLimit struct {
	Wait      time.Duration
	Reset     int64
	Remaining int
}

// RateLimitParser extracts throttling hints from response headers.
type RateLimitParser func(http.Header) RateLimit

// Client wraps http.Client with status-aware retries.
type Client struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	parse      RateLimitParser
	classify   ClassifyFunc
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

func WithMaxRetries(max int) Option {
	return func(c *Client) { c.maxRetries = max }
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) { c.baseDelay = delay }
}

func WithRateLimitParser(parse RateLimitParser) Option {
	return func(c *Client) { c.parse = parse }
}

func WithClassifier(classify ClassifyFunc) Option {
	return func(c *Client) { c.classify = classify }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a Client with sensible defaults: 30s request timeout, 3
// retries, standard rate-limit header parsing.
func New(opts ...Option) *Client {
	c := &Client{
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		baseDelay:  time.Second,
		parse:      ParseRateLimitHeaders,
		classify:   ClassifyStatus,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyStatus is the default retry classification.
func ClassifyStatus(status int) Backoff {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return BackoffAdaptive
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return BackoffFixed
	default:
		return BackoffNone
	}
}

// Do performs the request, retrying per the classifier until the retry
// budget runs out. The returned response, when non-nil on error, is the
// last failing one; callers still own closing its body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastWait time.Duration
	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, &StatusError{Err: err}
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 300 {
			return resp, nil
		}

		class := c.classify(resp.StatusCode)
		var limit RateLimit
		if c.parse != nil {
			limit = c.parse(resp.Header)
		}
		wait := c.delayFor(class, attempt, limit)

		if class == BackoffNone || wait <= 0 || attempt >= c.maxRetries {
			if attempt >= c.maxRetries {
				lastWait = wait
			}
			return resp, &StatusError{Code: resp.StatusCode, Wait: lastWait}
		}

		c.logger.Warn("retrying request",
			"url", req.URL.String(),
			"status", resp.StatusCode,
			"delay", wait,
			"attempt", attempt+1,
			"max_retries", c.maxRetries)
		resp.Body.Close()
		time.Sleep(wait)
	}
}

// delayFor computes the wait before the next attempt, zero meaning stop.
func (c *Client) delayFor(class Backoff, attempt int, limit RateLimit) time.Duration {
	switch class {
	case BackoffAdaptive:
		if limit.Wait > 0 {
			return limit.Wait
		}
		if limit.Reset > 0 {
			if until := time.Until(time.Unix(limit.Reset, 0)); until > 0 {
				return until
			}
		}
		delay := c.baseDelay << attempt
		return delay + delay/10

	case BackoffFixed:
		if attempt >= 2 {
			return 0
		}
		return time.Duration(1+attempt) * time.Second

	default:
		return 0
	}
}
