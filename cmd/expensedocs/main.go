package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensedocs/internal/amqp"
	"expensedocs/internal/backend"
	"expensedocs/internal/cli"
	"expensedocs/internal/config"
	apphttp "expensedocs/internal/http"
	applog "expensedocs/internal/log"
	"expensedocs/internal/middleware/ratelimit"
	"expensedocs/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.NewLogger(cfg, applog.ComponentApp, os.Stdout)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	if backendCfg.Type == backend.SQLiteBackend && cfg.UsesDefaultJWTSecret() {
		logger.Warn("Using the built-in JWT secret; set JWT_SECRET outside development")
	}

	factory := backend.NewFactory(logger.With(applog.FieldComponent, applog.ComponentBackend).Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", applog.FieldError, err)
			}
		}
	}()

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect event feed: %w", err)
		}
		defer client.Close()
		publisher = client
		logger.Info("Publishing events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Event feed disabled - no AMQP_URL provided")
	}

	svc := services.NewExpenseService(result.Backend, publisher, logger)
	sub := svc.ForwardAuthEvents(ctx)
	defer sub.Unsubscribe()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:        cfg.Addr(),
		Backend:     svc,
		Logger:      logger,
		PublicFiles: result.PublicFiles,
		RateLimit:   ratelimit.DefaultConfig(),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expensedocs server", "addr", cfg.Addr(), applog.FieldBackend, backendCfg.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
