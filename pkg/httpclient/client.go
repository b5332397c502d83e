// Package httpclient wraps net/http with the timeout, redirect, and
// transport configuration shared by the search and fetch clients.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Config defines the client setup.
type Config struct {
	Timeout time.Duration
	// MaxRedirects bounds redirect chains; negative disables following
	// redirects entirely.
	MaxRedirects int
	// UseCookieJar keeps cookies across requests, which some news sites
	// require before serving article bodies.
	UseCookieJar bool
	// Transport overrides the default transport, e.g. for TLS
	// fingerprinting or proxy routing.
	Transport http.RoundTripper
}

// Client is a thin wrapper over http.Client whose Do always binds the
// caller's context to the request.
type Client struct {
	*http.Client
}

// New builds a client from the configuration, applying a 30s timeout when
// none is given.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{Timeout: cfg.Timeout}

	switch {
	case cfg.MaxRedirects < 0:
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	case cfg.MaxRedirects > 0:
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c}, nil
}

// Do executes the request under ctx. The context governs cancellation
// independently of the client-level timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}

	resp, err := c.Client.Do(req.Clone(ctx))
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}
