package apiclient

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

	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
	"github.com/jrsteele09/go-sensor-dashboard/internal/utils"
	"github.com/jrsteele09/go-sensor-dashboard/token"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorBodyLen = 1 << 20
)

var errNoRefresher = errors.New("no refresher configured")

// Client talks JSON to the sensor backend. Calls made through Do go through the
// bearer/refresh chain; calls made through DoAnonymous never carry a token and
// are never retried, which is what the token endpoints themselves need.
type Client struct {
	baseURL   string
	store     token.Store
	refresh   *RefreshTransport
	authed    *http.Client
	anonymous *http.Client
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	base      http.RoundTripper
	timeout   time.Duration
	refresher Refresher
}

// WithTransport sets the innermost transport (defaults to http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.base = rt }
}

// WithTimeout bounds each logical call, including any refresh and retry.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

func WithRefresher(r Refresher) Option {
	return func(o *clientOptions) { o.refresher = r }
}

func New(baseURL string, store token.Store, opts ...Option) *Client {
	o := clientOptions{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	logging := &LoggingTransport{Base: o.base}
	refresh := &RefreshTransport{
		Base:  &BearerTransport{Base: logging, Store: store},
		Store: store,
	}
	if o.refresher != nil {
		refresh.SetRefresher(o.refresher)
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		store:     store,
		refresh:   refresh,
		authed:    &http.Client{Transport: refresh, Timeout: o.timeout},
		anonymous: &http.Client{Transport: logging, Timeout: o.timeout},
	}
}

// SetRefresher installs the refresh protocol after construction. The session
// controller needs the client to exist first, so wiring is two-step.
func (c *Client) SetRefresher(r Refresher) {
	c.refresh.SetRefresher(r)
}

func (c *Client) Store() token.Store { return c.store }

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, in, out)
}

func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, in, out)
}

// Do performs an authenticated call with the one-shot refresh-and-retry policy.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	return c.do(ctx, c.authed, method, path, query, in, out)
}

// DoAnonymous performs a call without a bearer token and without retry.
func (c *Client) DoAnonymous(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, c.anonymous, method, path, nil, in, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &errors.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &errors.AuthError{
			Op:         op,
			Reason:     utils.FirstNonEmpty(errorMessage(resp.Body), "unauthorized"),
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.ServerError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage pulls a human readable reason out of an error body. The backend
// uses "detail" for auth failures and "error" or "message" elsewhere.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyLen))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return utils.FirstNonEmpty(payload.Detail, payload.Error, payload.Message)
}
