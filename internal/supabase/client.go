// Package supabase talks to a hosted Supabase project over its REST, auth and
// storage HTTP APIs.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"expensedocs/internal/auth"
	"expensedocs/internal/core"
)

const (
	restPath    = "/rest/v1/"
	authPath    = "/auth/v1/"
	storagePath = "/storage/v1/"

	// Sessions this close to expiry are refreshed before use.
	expiryMargin = 10 * time.Second
)

// Client is a single project handle. It holds the anon key and the current
// auth session; everything else is fetched on every call.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	state      *auth.State
	now        func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock sets the time source used for update stamps and session expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New returns a client for the project at baseURL. Neither argument is
// checked here; a bad value surfaces as an error on first use.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		state:      auth.NewState(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels every auth subscription.
func (c *Client) Close() error {
	c.state.Close()
	return nil
}

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	header  http.Header
	body    io.Reader
	payload any
	// anon forces the anon key as bearer, skipping the session lookup.
	anon bool
	// token overrides the bearer token.
	token string
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil.
// Every failure, transport errors included, is returned as *core.BackendError.
func (c *Client) do(ctx context.Context, req request, out any) error {
	body := req.body
	if req.payload != nil {
		buf, err := json.Marshal(req.payload)
		if err != nil {
			return core.NewBackendError(req.op, 0, err.Error())
		}
		body = bytes.NewReader(buf)
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return core.NewBackendError(req.op, 0, err.Error())
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+c.bearer(ctx, req))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.NewBackendError(req.op, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(req.op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.NewBackendError(req.op, resp.StatusCode, fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

func (c *Client) bearer(ctx context.Context, req request) string {
	if req.token != "" {
		return req.token
	}
	if req.anon {
		return c.apiKey
	}
	if session, err := c.Session(ctx); err == nil && session != nil {
		return session.AccessToken
	}
	return c.apiKey
}
