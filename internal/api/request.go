package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError represents an error response from the metrics source.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("metrics api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// doRequest performs a single HTTP request and returns the raw body.
func (c *Client) doRequest(ctx context.Context, method, fullURL string, body io.Reader, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       raw,
		}
	}

	return raw, nil
}

// doWithRetry performs a GET with exponential backoff retry on retryable
// errors.
func (c *Client) doWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		raw, err := c.doRequest(ctx, http.MethodGet, fullURL, nil, nil)
		if err == nil {
			return raw, nil
		}

		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET against path (relative to the base URL) with retries.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	fullURL := c.baseURL + "/" + c.version + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return c.getURL(ctx, fullURL, result)
}

// getURL performs a GET against an absolute URL with retries. Paged
// responses carry absolute next-page URLs, so paging loops go through here.
func (c *Client) getURL(ctx context.Context, fullURL string, result any) error {
	raw, err := c.doWithRetry(ctx, fullURL)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// authedQuery returns query values carrying the access token.
func (c *Client) authedQuery() url.Values {
	q := url.Values{}
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	return q
}

// stripAntiHijack removes the infinite-loop prefix some endpoints prepend to
// JSON bodies.
func stripAntiHijack(body string) string {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "for") {
		if i := strings.Index(body, "{"); i >= 0 {
			return body[i:]
		}
	}
	return body
}
