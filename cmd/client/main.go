package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Antonite/snake_rl/config"
	"github.com/Antonite/snake_rl/qdeepneuro"
	"github.com/Antonite/snake_rl/snake"
	"github.com/Antonite/snake_rl/training"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// client watches a trained model play in the terminal.
func main() {
	var colors = flag.Bool("colors", true, "colour the board")
	cfg, err := config.LoadFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	cfg.SetupLogging()
	if cfg.FrameDelay == 0 {
		cfg.FrameDelay = 100 * time.Millisecond
	}

	cfg.UseCheckpoint = true
	a, err := training.NewAgent(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to load model")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	au := aurora.NewAurora(*colors)
	game := training.NewGame(cfg)
	best := 0
	for n := 1; cfg.MaxGames == 0 || n <= cfg.MaxGames; n++ {
		score, err := qdeepneuro.Play(ctx, a, game, func(s snake.State) error {
			fmt.Print("\033[H\033[2J")
			if err := s.Render(os.Stdout, au); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.FrameDelay):
				return nil
			}
		})
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			log.WithError(err).Fatal("failed to play")
		}

		if score > best {
			best = score
		}
		fmt.Println(au.Green(fmt.Sprintf("Game %d Score %d Best score %d", n, score, best)))
	}
}
