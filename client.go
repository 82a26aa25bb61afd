package mosaic

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
)

// HTTPClient is the interface for HTTP client.
type HTTPClient interface {
	// Get sends a GET request to the remote service.
	Get(context.Context, *url.URL) (*http.Response, error)
	// Post sends a POST request to the remote service.
	Post(context.Context, *url.URL, []byte) (*http.Response, error)
	// Close releases idle connections.
	Close()
}

type httpClient struct {
	client *http.Client
	token  string
}

// NewHTTPClient creates a new internal HTTP client. A non-empty token is sent
// as a bearer token with every request.
func NewHTTPClient(token string) HTTPClient {
	return &httpClient{
		client: &http.Client{},
		token:  token,
	}
}

// Ensure httpClient implements HTTPClient.
var _ HTTPClient = (*httpClient)(nil)

func (c *httpClient) Get(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	return c.client.Do(req)
}

func (c *httpClient) Post(ctx context.Context, u *url.URL, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.client.Do(req)
}

func (c *httpClient) Close() {
	c.client.CloseIdleConnections()
}

func (c *httpClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
