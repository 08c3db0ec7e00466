package client

import (
	"net/http"
	"time"

	"github.com/Zkeai/DDPay-web/common/logging"
)

// RequestOptions controls a single call. The zero value is an
// authenticated GET that refreshes on 401.
type RequestOptions struct {
	Method string
	Header http.Header

	// Body may be nil, []byte, string, json.RawMessage, an io.Reader or any
	// JSON-marshalable value. It is buffered so a retry can replay it.
	Body any

	// BaseURL overrides the configured API origin for this call.
	BaseURL string

	// SkipAuth sends the request without a bearer token and without
	// requiring a session.
	SkipAuth bool

	// RefreshOnUnauthorized defaults to true when nil.
	RefreshOnUnauthorized *bool
}

func (o *RequestOptions) refreshAllowed() bool {
	return o.RefreshOnUnauthorized == nil || *o.RefreshOnUnauthorized
}

// Bool returns a pointer to b, for RequestOptions.RefreshOnUnauthorized.
func Bool(b bool) *bool {
	return &b
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. The default has no timeout;
// use the context for deadlines.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSingleFlight toggles sharing one in-flight refresh between
// concurrent callers holding the same refresh token. Enabled by default.
func WithSingleFlight(enabled bool) Option {
	return func(c *Client) { c.singleFlight = enabled }
}

// WithClock overrides the clock used to time requests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}
