// Package client is the authenticated gateway to the DDPay REST API. It
// attaches the session's bearer token, refreshes it when it has expired or
// the server answers 401, and turns responses into values or errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Zkeai/DDPay-web/cli/internal/metrics"
	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/common/config"
	"github.com/Zkeai/DDPay-web/common/logging"
	"github.com/Zkeai/DDPay-web/common/middleware"
)

// Envelope codes used by the backend.
const (
	CodeSuccess      = 200
	CodeUnauthorized = 401
)

var utf8BOM = []byte("\xef\xbb\xbf")

// maxRetries caps refresh-and-retry cycles per call.
const maxRetries = 1

// SessionStore is the session state the client reads and mutates.
// *session.Store implements it.
type SessionStore interface {
	AccessToken() string
	RefreshToken() string
	IsTokenExpired() bool
	Login(ctx context.Context, user session.User, accessToken, refreshToken string, expiresIn int64) error
	Register(ctx context.Context, user session.User, accessToken, refreshToken string, expiresIn int64) error
	UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresIn int64) error
	SetUser(ctx context.Context, user session.User) error
	Logout(ctx context.Context) error
}

// Client calls the backend on behalf of the current session.
type Client struct {
	api          config.APIConfig
	store        SessionStore
	http         *http.Client
	logger       *logging.Logger
	now          func() time.Time
	singleFlight bool
	refreshes    singleflight.Group
}

// New returns a Client for the API described by cfg.
func New(cfg config.APIConfig, store SessionStore, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		api:          cfg,
		store:        store,
		http:         &http.Client{},
		logger:       logging.Default(),
		now:          time.Now,
		singleFlight: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns path under the configured API prefix.
func (c *Client) Endpoint(path string) string {
	return c.api.Endpoint(path)
}

// Response is a raw backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// DecodeJSON parses the body into out. A leading UTF-8 BOM is ignored. An
// empty or invalid body yields ErrMalformedResponse. out may be nil to
// only validate the body.
func (r *Response) DecodeJSON(out any) error {
	body := bytes.TrimPrefix(r.Body, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyResponse
	}
	if !json.Valid(body) {
		return ErrMalformedResponse
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Err returns an *HTTPError for a non-2xx response and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	httpErr := &HTTPError{Status: r.Status}
	var env struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if json.Unmarshal(bytes.TrimPrefix(r.Body, utf8BOM), &env) == nil {
		httpErr.Code = env.Code
		httpErr.Message = env.Msg
	}
	return httpErr
}

// Do performs the call and decodes a 2xx JSON body into out.
func (c *Client) Do(ctx context.Context, path string, opts *RequestOptions, out any) error {
	resp, err := c.Send(ctx, path, opts)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return resp.DecodeJSON(out)
}

type callState int

const (
	statePreflight callState = iota
	stateDispatch
	stateRefreshRetry
)

// Send performs the call and returns the final response without
// interpreting its status or body.
func (c *Client) Send(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}
	ctx, _ = middleware.EnsureRequestID(ctx)

	var (
		resp      *Response
		sentToken string
		retries   int
		state     = statePreflight
	)

	for {
		switch state {
		case statePreflight:
			if !opts.SkipAuth && c.store.IsTokenExpired() {
				if err := c.preflightRefresh(ctx, opts); err != nil {
					return nil, err
				}
			}
			state = stateDispatch

		case stateDispatch:
			if !opts.SkipAuth {
				sentToken = c.store.AccessToken()
			}
			resp, err = c.dispatch(ctx, path, opts, body, sentToken, retries)
			if err != nil {
				return nil, err
			}
			if resp.Status == http.StatusUnauthorized && retries < maxRetries &&
				!opts.SkipAuth && opts.refreshAllowed() && c.store.RefreshToken() != "" {
				state = stateRefreshRetry
				continue
			}
			return resp, nil

		case stateRefreshRetry:
			retries++
			// Another caller may already have rotated the token.
			if current := c.store.AccessToken(); current == "" || current == sentToken {
				if err := c.refresh(ctx); err != nil {
					c.forceLogout(ctx)
					return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
				}
			}
			state = stateDispatch
		}
	}
}

func (c *Client) preflightRefresh(ctx context.Context, opts *RequestOptions) error {
	if c.store.RefreshToken() == "" || !opts.refreshAllowed() {
		c.forceLogout(ctx)
		return ErrNotAuthenticated
	}
	if err := c.refresh(ctx); err != nil {
		c.forceLogout(ctx)
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return nil
}

func (c *Client) dispatch(ctx context.Context, path string, opts *RequestOptions, body []byte, token string, attempt int) (*Response, error) {
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	baseURL := c.api.BaseURL
	if opts.BaseURL != "" {
		baseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderRequestID, middleware.GetRequestID(ctx))
	for k, vs := range opts.Header {
		key := http.CanonicalHeaderKey(k)
		if key == "Authorization" {
			continue
		}
		req.Header[key] = append([]string(nil), vs...)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	httpResp, err := c.http.Do(req)
	elapsed := c.now().Sub(start)
	metrics.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(method, metrics.StatusClass(0)).Inc()
		c.logger.DebugContext(ctx, "api request failed",
			logging.Method(method), logging.Path(path), logging.Attempt(attempt+1), logging.Error(err))
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	metrics.RequestsTotal.WithLabelValues(method, metrics.StatusClass(httpResp.StatusCode)).Inc()
	c.logger.DebugContext(ctx, "api request",
		logging.Method(method),
		logging.Path(path),
		logging.Status(httpResp.StatusCode),
		logging.Duration(elapsed),
		logging.Attempt(attempt+1),
	)

	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		return data, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return data, nil
	}
}
