package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	libconfig "liveboard/backend/libs/config"
	"liveboard/backend/libs/logging"
	"liveboard/backend/services/liveboard-ingest/internal/app"
	"liveboard/backend/services/liveboard-ingest/internal/config"
)

func main() {
	once := flag.Bool("once", false, "run a single ingest and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := libconfig.LoadDotEnv(".env"); err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("liveboard-ingest")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init liveboard ingest", zap.Error(err))
	}
	defer application.Close()

	if *once {
		result, err := application.RunOnce(ctx)
		if err != nil {
			logger.Error("ingest failed", zap.String("run_id", result.RunID), zap.Error(err))
			application.Close()
			_ = logger.Sync()
			os.Exit(1)
		}
		return
	}

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("liveboard ingest stopped with error", zap.Error(err))
	}
}
