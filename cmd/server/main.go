package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	if cfg.Addr == "" {
		cfg.Addr = ":8081"
	}
	cfg.SetupLogging()

	log.WithField("addr", cfg.Addr).Info("Server started   " + time.Now().Format("Mon Jan _2 15:04:05 2006"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := training.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server failed")
	}
}
