package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Antonite/snake_rl/config"
	"github.com/Antonite/snake_rl/training"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	cfg.SetupLogging()
	log.Info("starting snake RL...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := training.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("training failed")
	}
	log.Info("training stopped")
}
