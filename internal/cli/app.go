// Package cli wires configuration, stores and adapters into runnable commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/config"
	httpadapter "github.com/aretw0/chatflow/pkg/adapters/http"
	"github.com/aretw0/chatflow/pkg/adapters/messenger"
	"github.com/aretw0/chatflow/pkg/chatbots"
	"github.com/aretw0/chatflow/pkg/dispatch"
	"github.com/aretw0/chatflow/pkg/observability"
	"github.com/aretw0/chatflow/pkg/ports"
)

// App is a fully wired chatflow process.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Service    *chatflow.Service
	Chatbots   *chatbots.Service
	Metrics    *observability.Metrics
	Streams    *httpadapter.StreamManager
	Dispatcher ports.Dispatcher

	// closers run in reverse order on Close.
	closers []func(context.Context) error
}

// AppOption customizes NewApp, mostly for tests.
type AppOption func(*appOptions)

type appOptions struct {
	sender ports.Sender
}

// WithSender replaces the Graph API client.
func WithSender(s ports.Sender) AppOption {
	return func(o *appOptions) { o.sender = s }
}

// NewApp opens the configured stores, loads the seed and builds the service.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close(context.Background())
		}
	}()

	b, err := openStores(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func(context.Context) error { return b.close() })
	if err := b.ensureSeeded(ctx, cfg.Store.Seed, logger); err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := observability.NewTracerProvider(ctx, cfg.Tracing.ServiceName)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, tp.Shutdown)
		logger.Info("Tracing enabled", "service", cfg.Tracing.ServiceName)
	}

	sender := o.sender
	if sender == nil {
		sender = messenger.NewClient(
			messenger.WithBaseURL(cfg.Meta.GraphBaseURL),
			messenger.WithAPIVersion(cfg.Meta.GraphVersion),
			messenger.WithLogger(logger),
		)
	}

	app.Metrics = observability.NewMetrics(observability.WithLogger(logger))
	app.Streams = httpadapter.NewStreamManager(logger)

	svcOpts := []chatflow.Option{
		chatflow.WithLogger(logger),
		chatflow.WithLifecycleHooks(observability.Chain(app.Metrics.Hooks(), app.Streams.Hooks())),
		chatflow.WithAdmissionObserver(app.Metrics.ObserveAdmission),
		chatflow.WithMaxHops(cfg.Engine.MaxHops),
	}
	if b.locker != nil {
		svcOpts = append(svcOpts, chatflow.WithLocker(b.locker, cfg.Engine.LockTTL))
	}
	app.Service, err = chatflow.New(b.stores, sender, svcOpts...)
	if err != nil {
		return nil, err
	}
	app.Chatbots = chatbots.New(b.stores.Chatbots, b.stores.Accounts, chatbots.WithLogger(logger))

	switch cfg.Dispatch {
	case config.DispatchQueue:
		q, err := dispatch.NewQueue(app.Service, dispatch.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to start dispatch queue: %w", err)
		}
		app.Dispatcher = q
	default:
		app.Dispatcher = dispatch.NewInline(app.Service, logger)
	}
	// Registered last so in-flight turns drain before the stores close.
	app.closers = append(app.closers, func(context.Context) error { return app.Dispatcher.Close() })

	ok = true
	return app, nil
}

// Handler builds the HTTP surface of the app.
func (a *App) Handler() http.Handler {
	return httpadapter.NewHandler(httpadapter.Config{
		Webhook:     a.Service,
		Dispatcher:  a.Dispatcher,
		VerifyToken: a.Config.Meta.VerifyToken,
		AppSecret:   a.Config.Meta.AppSecret,
		Chatbots:    a.Chatbots,
		Sessions:    a.Service,
		Streams:     a.Streams,
		Metrics:     a.Metrics.Handler(),
		AdminToken:  a.Config.AdminToken,
		Version:     chatflow.Version,
		Logger:      a.Logger,
	})
}

// Close releases everything NewApp opened.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
