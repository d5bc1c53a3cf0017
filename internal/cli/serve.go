package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second

// Serve runs the app's HTTP server on ln until ctx is cancelled, then drains
// requests and in-flight turns.
func Serve(ctx context.Context, app *App, ln net.Listener) error {
	srv := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting chatflow server", "addr", ln.Addr().String(), "store", app.Config.Store.Driver, "dispatch", app.Config.Dispatch)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return app.Close(context.Background())
		}
		_ = app.Close(context.Background())
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		app.Logger.Info("Shutting down", "cause", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Warn("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
		errs = append(errs, err, srv.Close())
	}
	errs = append(errs, app.Close(shutdownCtx))
	if err := errors.Join(errs...); err != nil {
		return err
	}
	app.Logger.Info("Server stopped gracefully")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func ListenAndServe(ctx context.Context, app *App) error {
	ln, err := net.Listen("tcp", app.Config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.Config.Addr, err)
	}
	return Serve(ctx, app, ln)
}
