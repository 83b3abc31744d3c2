package clients

import (
	"context"
	"io"
	"net/http"
)

// DefaultUserAgent identifies us to the upstream API
const DefaultUserAgent = "lyzr-lineage/1.0"

// Logger interface for HTTP client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// HTTPClient wraps http.Client with context-aware helpers.
// It extracts metadata from context and adds the matching headers.
type HTTPClient struct {
	client    *http.Client
	logger    Logger
	userAgent string
}

// NewHTTPClient creates a new HTTP client wrapper
func NewHTTPClient(client *http.Client, logger Logger) *HTTPClient {
	return &HTTPClient{
		client:    client,
		logger:    logger,
		userAgent: DefaultUserAgent,
	}
}

// DoRequest creates and executes an HTTP request, extracting metadata from context
func (c *HTTPClient) DoRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if requestID, ok := GetRequestID(ctx); ok {
		req.Header.Set("X-Request-ID", requestID)
		c.logger.Debug("added X-Request-ID header from context", "request_id", requestID)
	}

	return c.client.Do(req)
}
