// Command expensedocs-audit writes one log line per event published by the
// expensedocs server.
package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"expensedocs/internal/amqp"
	"expensedocs/internal/cli"
	applog "expensedocs/internal/log"
	"expensedocs/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.NewLogger(cfg, applog.ComponentAudit, os.Stdout)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume the event feed")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	auditor := worker.NewAuditWorker(logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, auditor.HandleEvent)
	})

	logger.Info("Audit consumer started", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Audit consumer stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	auditor.LogSummary(context.Background())
	logger.Info("Audit consumer stopped gracefully")
}
