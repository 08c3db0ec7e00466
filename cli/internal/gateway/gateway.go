// Package gateway serves the local console gateway: a small HTTP server a
// browser UI talks to instead of holding tokens itself.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zkeai/DDPay-web/cli/internal/client"
	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/common/httputil"
	"github.com/Zkeai/DDPay-web/common/logging"
	"github.com/Zkeai/DDPay-web/common/messaging"
	"github.com/Zkeai/DDPay-web/common/middleware"
)

// APIClient is the subset of *client.Client the gateway uses.
type APIClient interface {
	Endpoint(path string) string
	Send(ctx context.Context, path string, opts *client.RequestOptions) (*client.Response, error)
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	Logout(ctx context.Context) error
}

// SessionView is the read side of the session store.
type SessionView interface {
	User() *session.User
	IsAuthenticated() bool
	TokenExpiration() (time.Time, bool)
}

// RouterConfig holds dependencies needed to configure routes.
type RouterConfig struct {
	API       APIClient
	Session   SessionView
	Publisher messaging.Publisher
	CORS      middleware.CORSConfig
	Logger    *logging.Logger
}

// SessionInfo is the browser-visible session. It never carries tokens.
type SessionInfo struct {
	User            *session.User `json:"user"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	ExpiresAt       *time.Time    `json:"expiresAt"`
}

// NewRouter constructs the gateway handler with middleware applied.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	mux := http.NewServeMux()

	mux.Handle(cfg.API.Endpoint("")+"/", NewProxy(cfg.API, cfg.Logger).Handler())

	mux.HandleFunc("GET /session", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, sessionInfo(cfg.Session))
	})

	mux.HandleFunc("POST /session/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&creds); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if _, err := cfg.API.Login(r.Context(), creds.Email, creds.Password); err != nil {
			writeAPIError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, sessionInfo(cfg.Session))
	})

	mux.HandleFunc("POST /session/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.API.Logout(r.Context()); err != nil {
			cfg.Logger.WarnContext(r.Context(), "failed to persist logout", logging.Error(err))
		}
		httputil.WriteJSON(w, http.StatusOK, sessionInfo(cfg.Session))
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if cfg.Publisher != nil {
			body["nats"] = messaging.CheckPublisherHealth(cfg.Publisher)
		}
		httputil.WriteJSON(w, http.StatusOK, body)
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORS)(handler)
	return middleware.RequestID(handler)
}

func sessionInfo(s SessionView) SessionInfo {
	info := SessionInfo{User: s.User(), IsAuthenticated: s.IsAuthenticated()}
	if exp, ok := s.TokenExpiration(); ok {
		info.ExpiresAt = &exp
	}
	return info
}

func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	var httpErr *client.HTTPError
	switch {
	case errors.As(err, &apiErr):
		httputil.WriteEnvelope(w, http.StatusOK, apiErr.Code, apiErr.Message, nil)
	case errors.As(err, &httpErr):
		httputil.WriteError(w, httpErr.Status, httpErr.Error())
	case errors.Is(err, client.ErrMalformedResponse):
		httputil.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		httputil.WriteError(w, http.StatusBadGateway, "backend unavailable")
	}
}

// Server runs the gateway until its context is cancelled.
type Server struct {
	httpServer *http.Server
	logger     *logging.Logger
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer wraps handler in an http.Server.
func NewServer(cfg ServerConfig, handler http.Handler, logger *logging.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("gateway shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown gateway: %w", err)
	}
	return nil
}
