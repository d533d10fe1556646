// Package client implements the REST API client the CLI commands use to talk
// to a running automeet daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	v1 "github.com/automeet/automeet/internal/api/v1"
)

// Client is a small HTTP client for the daemon's REST API. All request and
// response bodies are JSON.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     *logrus.Entry
}

// Option configures a Client beyond the defaults New sets up.
type Option func(*Client)

// New returns a Client for the daemon listening on the host:port address.
func New(address string, options ...Option) (*Client, error) {
	base, err := url.Parse("http://" + address)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:       base,
		httpClient: http.DefaultClient,
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// WithHTTPClient makes the client issue requests through httpClient instead
// of http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger attaches a logger for per-request debug lines.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// CallAPI sends one request to the daemon. A non-nil body is marshaled to
// JSON and a non-nil out receives the decoded response. Error responses come
// back as the first v1.Error of the envelope, so callers can match on its
// Title.
func (c *Client) CallAPI(ctx context.Context, method, path string, body, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"method": method, "path": path}).Debug("calling the daemon API")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode >= http.StatusBadRequest {
		return apiError(res, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

// apiError turns an error response into the v1.Error it carries, falling
// back to the HTTP status when the envelope does not decode.
func apiError(res *http.Response, data []byte) error {
	var envelope v1.ErrorResponse
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Errors) == 0 {
		return fmt.Errorf("unexpected response from the daemon: %s", res.Status)
	}
	return envelope.Errors[0]
}
