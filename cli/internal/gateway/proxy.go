package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Zkeai/DDPay-web/cli/internal/client"
	"github.com/Zkeai/DDPay-web/common/httputil"
	"github.com/Zkeai/DDPay-web/common/logging"
)

// maxBodyBytes caps forwarded request bodies.
const maxBodyBytes = 10 << 20

// forwardedHeaders are copied from the browser request. Authorization is
// never forwarded; the client attaches the session's token itself.
var forwardedHeaders = []string{"Content-Type", "Accept", "Accept-Language"}

// hopHeaders are not copied back to the browser.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

// Proxy forwards browser API calls through the authenticated client.
type Proxy struct {
	api        APIClient
	public     map[string]bool
	logoutPath string
	logger     *logging.Logger
}

// NewProxy returns a Proxy. Calls to the public account endpoints are sent
// without a session.
func NewProxy(api APIClient, logger *logging.Logger) *Proxy {
	public := make(map[string]bool)
	for _, p := range []string{"/user/login", "/user/register", "/user/send-code", "/user/reset-password", "/user/check-email", "/user/refresh-token"} {
		public[api.Endpoint(p)] = true
	}
	return &Proxy{api: api, public: public, logoutPath: api.Endpoint("/user/logout"), logger: logger}
}

func (p *Proxy) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == p.logoutPath {
			p.logout(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		header := make(http.Header)
		for _, key := range forwardedHeaders {
			if v := r.Header.Values(key); len(v) > 0 {
				header[key] = v
			}
		}

		opts := &client.RequestOptions{
			Method:   r.Method,
			Header:   header,
			SkipAuth: p.public[r.URL.Path],
		}
		if len(body) > 0 {
			opts.Body = body
		}

		resp, err := p.api.Send(r.Context(), path, opts)
		if err != nil {
			p.writeError(r.Context(), w, err)
			return
		}

		for key, values := range resp.Header {
			if hopHeaders[http.CanonicalHeaderKey(key)] {
				continue
			}
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.Status)
		w.Write(resp.Body)
	})
}

// logout revokes through the client so the held session is cleared
// whether or not the backend call succeeds.
func (p *Proxy) logout(w http.ResponseWriter, r *http.Request) {
	if err := p.api.Logout(r.Context()); err != nil {
		p.logger.WarnContext(r.Context(), "failed to persist logout", logging.Error(err))
	}
	httputil.WriteEnvelope(w, http.StatusOK, client.CodeSuccess, "logged out", nil)
}

func (p *Proxy) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, client.ErrNotAuthenticated), errors.Is(err, client.ErrSessionExpired):
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, context.Canceled):
		// The browser went away; nothing to write.
	default:
		p.logger.WarnContext(ctx, "proxy request failed", logging.Error(err))
		httputil.WriteError(w, http.StatusBadGateway, "backend unavailable")
	}
}
