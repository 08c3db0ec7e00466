package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Zkeai/DDPay-web/cli/internal/client"
	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/common/config"
	"github.com/Zkeai/DDPay-web/common/logging"
	"github.com/Zkeai/DDPay-web/common/messaging"
	"github.com/Zkeai/DDPay-web/common/messaging/nats"
)

// Session backends accepted in session.backend.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// App holds the dependencies shared by every command.
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Store     *session.Store
	Client    *client.Client
	Publisher messaging.Publisher

	closers []func()
}

// NewApp opens the session backend, connects NATS when enabled and builds the API client.
func NewApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	persister, err := a.openPersister(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []session.Option{
		session.WithKey(cfg.Session.Key),
		session.WithLogger(logger),
	}
	if cfg.NATS.Enabled {
		natsCfg := nats.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		natsCfg.ReconnectWait = cfg.NATS.ReconnectWait
		natsCfg.Logger = logger.Logger

		nc, err := nats.NewClient(natsCfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Publisher = nc
		a.closers = append(a.closers, func() { _ = nc.Close() })
		opts = append(opts, session.WithNotifier(session.NewEventPublisher(nc, cfg.NATS.SubjectPrefix, logger)))
	}

	store, err := session.Open(ctx, persister, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	a.Client = client.New(cfg.API, store,
		client.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		client.WithLogger(logger),
	)
	return a, nil
}

func (a *App) openPersister(ctx context.Context) (session.Persister, error) {
	cfg := a.Config
	logger := a.Logger.With(logging.Backend(cfg.Session.Backend))

	switch cfg.Session.Backend {
	case BackendFile, "":
		logger.Debug("using file session backend", "path", cfg.Session.File.Path)
		return session.NewFilePersister(cfg.Session.File.Path, cfg.Session.File.Passphrase), nil
	case BackendMemory:
		return session.NewMemoryPersister(), nil
	case BackendRedis:
		rp, err := session.NewRedisPersister(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rp.Close() })
		return rp, nil
	case BackendPostgres:
		connString := cfg.Database.Postgres.ConnString()
		if err := session.Migrate(connString); err != nil {
			return nil, err
		}
		pp, err := session.NewPostgresPersister(ctx, connString)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pp.Close)
		return pp, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
