package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Handler serves the local storage root at "/" and Prometheus metrics at
// "/metrics". Local URLs produced by the engine resolve against it.
func (app *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	if app.local != nil {
		mux.Handle("/", http.FileServer(http.Dir(app.local.Root())))
	}
	return mux
}

// Serve listens on the configured address until ctx is canceled.
func (app *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.MetricsAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.MetricsAddr, err)
	}
	return app.serve(ctx, ln)
}

func (app *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
