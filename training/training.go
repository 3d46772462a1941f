package training

import (
	"context"
	"os"

	"github.com/Antonite/snake_rl/config"
	"github.com/Antonite/snake_rl/metrics"
	"github.com/Antonite/snake_rl/plot"
	"github.com/Antonite/snake_rl/qdeepneuro"
	"github.com/Antonite/snake_rl/server"
	"github.com/Antonite/snake_rl/snake"
	"github.com/Antonite/snake_rl/storage"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NewAgent builds an agent from the config, restoring the checkpoint when asked to.
func NewAgent(cfg *config.Config) (*qdeepneuro.Agent, error) {
	agent := qdeepneuro.NewAgent(cfg.Params())
	if cfg.UseCheckpoint {
		if err := agent.LoadCheckpoint(cfg.ModelPath); err != nil {
			return nil, err
		}
	}
	return agent, nil
}

func NewGame(cfg *config.Config) *snake.Game {
	return snake.New(snake.WithSize(cfg.Game.Width, cfg.Game.Height))
}

// Run trains until ctx is done or the configured number of games is played.
// The HTTP server and the couchbase recorder are started when configured.
func Run(ctx context.Context, cfg *config.Config) error {
	agent, err := NewAgent(cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	opts := []qdeepneuro.LearnerOption{
		qdeepneuro.WithGame(NewGame(cfg)),
		qdeepneuro.WithModelPath(cfg.ModelPath),
		qdeepneuro.WithMaxGames(cfg.MaxGames),
		qdeepneuro.WithObserver(m),
	}
	if cfg.ChartPath != "" {
		opts = append(opts, qdeepneuro.WithPlotter(plot.New(cfg.ChartPath)))
	}
	if cfg.Render {
		opts = append(opts, qdeepneuro.WithRender(os.Stdout, true, cfg.FrameDelay))
	}
	if cfg.Couchbase.Address != "" {
		store, err := storage.Init(storage.Options{
			Address:  cfg.Couchbase.Address,
			Username: cfg.Couchbase.Username,
			Password: cfg.Couchbase.Password,
			Bucket:   cfg.Couchbase.Bucket,
			Timeout:  cfg.Couchbase.Timeout,
		})
		if err != nil {
			return errors.Wrap(err, "failed to initialize storage")
		}
		defer store.Close()
		opts = append(opts, qdeepneuro.WithRecorder(store))
	}

	learner := qdeepneuro.NewLearner(agent, opts...)
	log.WithFields(log.Fields{
		"run":   learner.ID(),
		"model": cfg.ModelPath,
		"chart": cfg.ChartPath,
	}).Info("training configured")

	if cfg.Addr == "" {
		return learner.Learn(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServer := context.WithCancel(gctx)
	g.Go(func() error {
		defer stopServer()
		return learner.Learn(gctx)
	})
	g.Go(func() error {
		return server.New(learner, m).ListenAndServe(serveCtx, cfg.Addr)
	})
	return g.Wait()
}
