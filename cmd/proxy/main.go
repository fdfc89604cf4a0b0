package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/upb/llm-fallback-proxy/app"
	"github.com/upb/llm-fallback-proxy/config"
	"github.com/upb/llm-fallback-proxy/internal/observability"
	"github.com/upb/llm-fallback-proxy/routes"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	listener, err := net.Listen("tcp", cfg.Server.Address())
	if err != nil {
		logger.Fatal("failed to listen", zap.String("address", cfg.Server.Address()), zap.Error(err))
	}

	if err := serve(ctx, cfg, logger, listener); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// initLogger builds the process logger from configuration
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// writeTimeoutGrace keeps the connection open past the handler timeout so the
// 504 written by the timeout middleware reaches the client
const writeTimeoutGrace = 5 * time.Second

// newHTTPServer applies the configured timeouts to handler
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}
	if cfg.Server.WriteTimeout > 0 {
		srv.WriteTimeout = cfg.Server.WriteTimeout + writeTimeoutGrace
	}
	return srv
}

// serve runs the HTTP server on listener until ctx is cancelled, then shuts
// down gracefully within the configured shutdown timeout
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, listener net.Listener) error {
	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close(context.Background())

	srv := newHTTPServer(cfg, routes.SetupRoutes(deps))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("address", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
