package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gymcoding/invoice-web/internal/config"
	"github.com/gymcoding/invoice-web/internal/logging"
	"github.com/gymcoding/invoice-web/pkg/di"
	"github.com/gymcoding/invoice-web/remote/sqlstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.App.Env, cfg.App.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	store, err := sqlstore.Open(ctx, cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	container, err := di.NewContainer(store, cfg, di.WithLogger(logger))
	if err != nil {
		return err
	}
	container.Start(ctx)
	defer container.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           container.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
