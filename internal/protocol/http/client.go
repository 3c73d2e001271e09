// Package http is the request execution service: the external
// collaborator that turns a resolved payload into a wire call. The
// workspace core never reaches past the interfaces.Sender boundary.
package http

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/interfaces"
)

// Client implements interfaces.Sender over net/http.
type Client struct {
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// NewClient creates a new HTTP execution client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// WithTimeout sets the hard request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithNoRedirects disables automatic redirect following.
func WithNoRedirects() Option {
	return func(c *Client) {
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
}

// WithTransport sets a custom HTTP transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = transport
	}
}

// Protocol returns the protocol identifier.
func (c *Client) Protocol() string {
	return "http"
}

// Send executes the payload and returns the uniform response shape.
// Transport-level failures come back as an error; the caller converts
// them into the status-0 sentinel.
func (c *Client) Send(ctx context.Context, p interfaces.Payload) (*core.Response, error) {
	start := time.Now()

	var bodyReader io.Reader
	if p.Body != "" {
		bodyReader = strings.NewReader(p.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, p.Method, p.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	for key, value := range p.Headers {
		httpReq.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(httpResp.Header))
	for key := range httpResp.Header {
		headers[key] = httpResp.Header.Get(key)
	}

	// httpResp.Status is "200 OK"; keep only the text part.
	statusText := httpResp.Status
	if idx := strings.IndexByte(httpResp.Status, ' '); idx >= 0 {
		statusText = httpResp.Status[idx+1:]
	}

	return &core.Response{
		Status:       httpResp.StatusCode,
		StatusText:   statusText,
		Headers:      headers,
		Body:         string(bodyBytes),
		ResponseTime: time.Since(start).Milliseconds(),
		Size:         int64(len(bodyBytes)),
	}, nil
}

var _ interfaces.Sender = (*Client)(nil)
