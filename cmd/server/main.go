package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server"
	"github.com/dmitrijs2005/authservice/internal/server/config"
	"github.com/dmitrijs2005/authservice/internal/telemetry"
)

func main() {

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error(context.Background(), "app failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	shutdown, err := telemetry.Setup(ctx, "authservice", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn(ctx, "tracing disabled", "error", err)
	}
	defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "close failed", "error", err)
		}
	}()

	return app.Run(ctx)
}
