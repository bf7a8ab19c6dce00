// Rate limited HTTP client shared by the catalogue scrapers
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/stereo/internal/shared"
)

const (
	defaultUserAgent = "Mozilla/5.0"
	defaultRetries   = 3
	defaultBackoff   = time.Second
)

// HTTPClient performs outbound requests to public catalogues at a bounded rate.
//
// Transport errors, 429 and 5xx responses are retried with a doubling backoff.
type HTTPClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	userAgent  string
	retries    int
	backoff    time.Duration
}

// HTTPOption configures an [HTTPClient].
type HTTPOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithRate limits requests to rps per second. Zero or less disables the limit.
func WithRate(rps float64) HTTPOption {
	return func(h *HTTPClient) {
		if rps <= 0 {
			h.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTPClient) { h.userAgent = ua }
}

// WithRetries sets how many attempts a request gets and the first backoff.
func WithRetries(attempts int, backoff time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if attempts > 0 {
			h.retries = attempts
		}
		h.backoff = backoff
	}
}

func WithHTTPLogger(l *log.Logger) HTTPOption {
	return func(h *HTTPClient) { h.logger = l }
}

// NewHTTPClient creates a client allowing two requests per second unless configured otherwise.
func NewHTTPClient(opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		logger:     log.New(io.Discard),
		userAgent:  defaultUserAgent,
		retries:    defaultRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// FinalURL is the URL after redirects were followed.
	FinalURL *url.URL
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Get performs a GET request to rawURL with query appended.
func (h *HTTPClient) Get(ctx context.Context, rawURL string, query url.Values) (*Response, error) {
	return h.do(ctx, http.MethodGet, rawURL, query, nil)
}

// PostJSON performs a POST request with body encoded as JSON.
func (h *HTTPClient) PostJSON(ctx context.Context, rawURL string, query url.Values, body any) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return h.do(ctx, http.MethodPost, rawURL, query, data)
}

func (h *HTTPClient) do(ctx context.Context, method, rawURL string, query url.Values, body []byte) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	backoff := h.backoff
	var lastErr error
	for attempt := 1; attempt <= h.retries; attempt++ {
		resp, err := h.once(ctx, method, u.String(), body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(resp) || attempt == h.retries {
			break
		}

		h.logger.Warn("request failed, retrying", "url", u.Redacted(), "attempt", attempt, "backoff", backoff, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}

// once performs a single attempt. A non-2xx status is returned with the response.
func (h *HTTPClient) once(ctx context.Context, method, target string, body []byte) (*Response, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
		FinalURL:   req.URL,
	}
	if resp.Request != nil {
		out.FinalURL = resp.Request.URL
	}

	h.logger.Debug("response", "method", method, "url", target, "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("%w: %s %s: status %d", shared.ErrAPIRequest, method, target, resp.StatusCode)
	}
	return out, nil
}

// retryable reports whether a failed attempt may succeed when repeated.
// A nil response means the request never completed.
func retryable(resp *Response) bool {
	if resp == nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}
