package api

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultVersion is the API version path segment used when none is configured.
const DefaultVersion = "v22.0"

// Client provides access to the metrics-source REST API.
type Client struct {
	baseURL     string
	graphqlURL  string
	accessToken string
	version     string
	httpClient  *http.Client
	logger      *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
	pageLimit    int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(baseURL, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		version:     DefaultVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
		pageLimit:    500,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.graphqlURL == "" {
		c.graphqlURL = c.baseURL + "/api/graphql"
	}

	return c
}

// WithVersion sets the API version path segment.
func WithVersion(v string) ClientOption {
	return func(c *Client) {
		c.version = v
	}
}

// WithGraphQLURL sets the endpoint used for billing-detail lookups.
func WithGraphQLURL(u string) ClientOption {
	return func(c *Client) {
		c.graphqlURL = u
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageLimit sets the page size requested from paged endpoints.
func WithPageLimit(n int) ClientOption {
	return func(c *Client) {
		c.pageLimit = n
	}
}
