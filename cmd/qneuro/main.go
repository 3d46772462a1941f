package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Antonite/snake_rl/config"
	"github.com/Antonite/snake_rl/qdeepneuro"
	"github.com/Antonite/snake_rl/training"
	log "github.com/sirupsen/logrus"
)

// qneuro scores a saved model with greedy play and no training.
func main() {
	cfg, err := config.LoadFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	cfg.SetupLogging()
	if cfg.MaxGames == 0 {
		cfg.MaxGames = 100
	}

	cfg.UseCheckpoint = true
	a, err := training.NewAgent(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to load model")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scores, err := qdeepneuro.Evaluate(ctx, a, training.NewGame(cfg), cfg.MaxGames)
	if err != nil {
		log.WithError(err).Warn("evaluation interrupted")
	}
	if len(scores) == 0 {
		return
	}

	best, total := 0, 0
	for _, s := range scores {
		total += s
		if s > best {
			best = s
		}
	}
	log.WithFields(log.Fields{
		"model": cfg.ModelPath,
		"games": len(scores),
		"best":  best,
		"mean":  float64(total) / float64(len(scores)),
	}).Info("evaluation finished")
}
