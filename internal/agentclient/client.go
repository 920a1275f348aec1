// Package agentclient talks to a Chompy agent over HTTP.
//
// It is what the chompy front end and chompyctl use to ask whether the
// dispenser is online and to trigger a dispense.
package agentclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// defaultTimeout bounds each request when no http.Client is supplied.
const defaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 64 << 10

// ErrUnexpectedStatus is returned when the agent answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected agent response")

// Status is the agent's /status body.
type Status struct {
	Online bool `json:"online"`
}

// Client is an HTTP client for one agent.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client for the agent at baseURL, e.g. "http://chompy.local:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing agent URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("agent URL %q must be http or https", baseURL)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StatusURL returns the agent's status endpoint.
func (c *Client) StatusURL() string {
	return c.base.JoinPath("status").String()
}

// DispenseURL returns the dispense endpoint for d.
func (c *Client) DispenseURL(d time.Duration) string {
	u := c.base.JoinPath("dispense")
	u.RawQuery = url.Values{"amount": {strconv.FormatFloat(d.Seconds(), 'f', -1, 64)}}.Encode()
	return u.String()
}

// Status asks the agent whether the device is online.
//
// Any failure reports the device as offline alongside the error, so callers
// that only care about the flag can ignore the error.
func (c *Client) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StatusURL(), nil)
	if err != nil {
		return Status{}, fmt.Errorf("building status request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return Status{}, err
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return Status{}, fmt.Errorf("decoding status %q: %w", body, err)
	}
	return status, nil
}

// Dispense asks the agent to run the motor for d.
//
// A nil error means the agent accepted and forwarded the command, not that
// snacks came out.
func (c *Client) Dispense(ctx context.Context, d time.Duration) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.DispenseURL(d), nil)
	if err != nil {
		return fmt.Errorf("building dispense request: %w", err)
	}

	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting agent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading agent response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
