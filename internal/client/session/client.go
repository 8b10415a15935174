package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds each HTTP exchange, including a shared refresh.
const DefaultTimeout = 15 * time.Second

// CredentialStore is the part of credentials.Store the Client needs.
type CredentialStore interface {
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	SetAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// SessionEndFunc is called once each time a failed refresh ends the session.
type SessionEndFunc func(ctx context.Context, cause error)

// Client sends API requests on behalf of one session. It attaches the stored
// access token and refreshes it once per 401, sharing the refresh between
// concurrent callers.
type Client struct {
	baseURL      string
	http         *http.Client
	timeout      time.Duration
	store        CredentialStore
	log          logging.Logger
	onSessionEnd SessionEndFunc

	refreshes singleflight.Group
}

// Option configures a Client in New.
type Option func(*Client)

// WithHTTPClient sends requests through hc. A timeout given with WithTimeout
// applies to a copy, hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each HTTP exchange; zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger for request and refresh events.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSessionEndHook registers fn to run when a failed refresh ends the session.
func WithSessionEndHook(fn SessionEndFunc) Option {
	return func(c *Client) { c.onSessionEnd = fn }
}

// New returns a Client for the API at baseURL that reads and updates
// credentials in store.
func New(baseURL string, store CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.http == nil:
		c.http = &http.Client{Timeout: DefaultTimeout}
		if c.timeout > 0 {
			c.http.Timeout = c.timeout
		}
	case c.timeout > 0:
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// Request sends one API request with the stored access token attached and
// handles a 401 by refreshing and replaying once. Any response that makes it
// back is returned without interpretation; use Response.Err to turn non-2xx
// into an error. body is JSON-encoded; nil sends no body.
func (c *Client) Request(ctx context.Context, method, path string, body any, header http.Header) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	access, _ := c.store.AccessToken()
	_, hasRefresh := c.store.RefreshToken()

	res, err := c.send(ctx, method, path, payload, header, access)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusUnauthorized || access == "" || !hasRefresh {
		return res, nil
	}

	c.log.Debug(ctx, "access token rejected", "path", path, "request_id", res.RequestID)

	fresh, err := c.refreshAfter(ctx, access)
	if err != nil {
		return nil, err
	}

	return c.send(ctx, method, path, payload, header, fresh)
}

// Call performs Request, converts non-2xx into an error and decodes the
// JSON answer into out (when out is non-nil).
func (c *Client) Call(ctx context.Context, method, path string, in, out any) error {
	res, err := c.Request(ctx, method, path, in, nil)
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return res.Decode(out)
}

// Get, Post, Put and Delete are Call with the matching method.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Call(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Call(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Call(ctx, http.MethodDelete, path, nil, out)
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return payload, nil
}

// send performs a single HTTP exchange. Header precedence: JSON content type
// by default, then caller headers, then the bearer token.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, header http.Header, token string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set(common.ContentTypeHeaderName, common.ContentTypeJSON)
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerValue(token))
	}
	if req.Header.Get(common.RequestIDHeaderName) == "" {
		req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}
	requestID := req.Header.Get(common.RequestIDHeaderName)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	c.log.Debug(ctx, "request done",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}
