package qdeepneuro

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Antonite/snake_rl/snake"
	"github.com/google/uuid"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// GameResult describes a finished training game.
type GameResult struct {
	Run       string    `json:"run"`
	Game      int       `json:"game"`
	Score     int       `json:"score"`
	Best      int       `json:"best"`
	Mean      float64   `json:"mean"`
	Steps     int       `json:"steps"`
	Loss      float64   `json:"loss"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder keeps a copy of game results and improved checkpoints outside the process.
type Recorder interface {
	RecordGame(ctx context.Context, result *GameResult) error
	RecordCheckpoint(ctx context.Context, run string, weights []byte) error
}

type Plotter interface {
	Plot(scores []int, means []float64) error
}

type Observer interface {
	ObserveGame(score, best int, mean float64)
	ObserveLoss(loss float64)
}

// Stats summarises a training run.
type Stats struct {
	Run        string    `json:"run"`
	Games      int       `json:"games"`
	Best       int       `json:"best"`
	Mean       float64   `json:"mean"`
	Scores     []int     `json:"scores"`
	MeanScores []float64 `json:"mean_scores"`
}

type Learner struct {
	id        uuid.UUID
	agent     *Agent
	game      *snake.Game
	modelPath string
	maxGames  int

	recorder Recorder
	plotter  Plotter
	observer Observer

	render     io.Writer
	au         aurora.Aurora
	frameDelay time.Duration

	mu         sync.RWMutex
	state      snake.State
	totalScore int
	stats      Stats
}

type LearnerOption func(*Learner)

func WithGame(g *snake.Game) LearnerOption {
	return func(l *Learner) {
		l.game = g
	}
}

// WithModelPath sets where the weights are saved when a game sets a new best score.
// An empty path disables saving.
func WithModelPath(path string) LearnerOption {
	return func(l *Learner) {
		l.modelPath = path
	}
}

// WithMaxGames stops learning after n games. Zero means run until cancelled.
func WithMaxGames(n int) LearnerOption {
	return func(l *Learner) {
		l.maxGames = n
	}
}

func WithRecorder(r Recorder) LearnerOption {
	return func(l *Learner) {
		l.recorder = r
	}
}

func WithPlotter(p Plotter) LearnerOption {
	return func(l *Learner) {
		l.plotter = p
	}
}

func WithObserver(o Observer) LearnerOption {
	return func(l *Learner) {
		l.observer = o
	}
}

// WithRender draws every frame to w, pausing delay between frames.
func WithRender(w io.Writer, colors bool, delay time.Duration) LearnerOption {
	return func(l *Learner) {
		l.render = w
		l.au = aurora.NewAurora(colors)
		l.frameDelay = delay
	}
}

func NewLearner(agent *Agent, opts ...LearnerOption) *Learner {
	l := &Learner{
		id:    uuid.New(),
		agent: agent,
	}
	for _, o := range opts {
		o(l)
	}
	if l.game == nil {
		l.game = snake.New()
	}

	l.stats.Run = l.id.String()
	l.state = l.game.Snapshot()
	return l
}

func (l *Learner) ID() string {
	return l.id.String()
}

// Learn plays and trains until ctx is done or the game limit is reached.
func (l *Learner) Learn(ctx context.Context) error {
	logger := log.WithField("run", l.ID())
	logger.Info("starting snake deep q learning")

	steps := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stateCurr := GetState(l.game)
		action := l.agent.GetAction(stateCurr)

		reward, gameOver, score := l.game.PlayStep(action)
		stateNew := GetState(l.game)
		steps++

		l.agent.TrainShortMemory(stateCurr, action, float64(reward), stateNew, gameOver)
		l.agent.Remember(stateCurr, action, float64(reward), stateNew, gameOver)

		if err := l.publish(ctx); err != nil {
			return err
		}

		if !gameOver {
			continue
		}

		l.game.Reset()
		l.agent.Games++
		loss := l.agent.TrainLongMemory()
		if l.observer != nil {
			l.observer.ObserveLoss(loss)
		}

		if err := l.finishGame(ctx, logger, score, steps, loss); err != nil {
			return err
		}
		steps = 0

		if l.maxGames > 0 && l.agent.Games >= l.maxGames {
			logger.WithField("games", l.agent.Games).Info("reached game limit")
			return nil
		}
	}
}

func (l *Learner) finishGame(ctx context.Context, logger *log.Entry, score, steps int, loss float64) error {
	l.mu.Lock()
	improved := score > l.stats.Best
	if improved {
		l.stats.Best = score
	}
	l.totalScore += score
	l.stats.Games = l.agent.Games
	l.stats.Mean = float64(l.totalScore) / float64(l.agent.Games)
	l.stats.Scores = append(l.stats.Scores, score)
	l.stats.MeanScores = append(l.stats.MeanScores, l.stats.Mean)
	result := &GameResult{
		Run:       l.ID(),
		Game:      l.stats.Games,
		Score:     score,
		Best:      l.stats.Best,
		Mean:      l.stats.Mean,
		Steps:     steps,
		Loss:      loss,
		Timestamp: time.Now(),
	}
	l.mu.Unlock()

	if improved {
		if err := l.saveModel(ctx); err != nil {
			return err
		}
	}

	logger.WithFields(log.Fields{
		"loss":  loss,
		"steps": steps,
	}).Infof("Game %d Score %d Best score %d", result.Game, score, result.Best)

	if l.observer != nil {
		l.observer.ObserveGame(score, result.Best, result.Mean)
	}

	if l.plotter != nil {
		stats := l.Stats()
		if err := l.plotter.Plot(stats.Scores, stats.MeanScores); err != nil {
			logger.WithError(err).Warn("failed to plot scores")
		}
	}

	if l.recorder != nil {
		if err := l.recorder.RecordGame(ctx, result); err != nil {
			logger.WithError(err).Warn("failed to record game")
		}
	}

	return nil
}

func (l *Learner) saveModel(ctx context.Context) error {
	if l.modelPath != "" {
		if err := l.agent.Network().Save(l.modelPath); err != nil {
			return errors.Wrap(err, "failed to save model")
		}
	}

	if l.recorder == nil {
		return nil
	}

	weights, err := l.agent.Network().MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	if err := l.recorder.RecordCheckpoint(ctx, l.ID(), weights); err != nil {
		log.WithError(err).WithField("run", l.ID()).Warn("failed to record checkpoint")
	}
	return nil
}

func (l *Learner) publish(ctx context.Context) error {
	state := l.game.Snapshot()

	l.mu.Lock()
	l.state = state
	l.mu.Unlock()

	if l.render == nil {
		return nil
	}

	// Clear screen and home the cursor before each frame
	fmt.Fprint(l.render, "\033[H\033[2J")
	if err := state.Render(l.render, l.au); err != nil {
		return errors.Wrap(err, "failed to render game")
	}

	if l.frameDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.frameDelay):
		}
	}
	return nil
}

// Snapshot returns the game as of the last played frame.
func (l *Learner) Snapshot() snake.State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state
}

func (l *Learner) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := l.stats
	s.Scores = append([]int(nil), l.stats.Scores...)
	s.MeanScores = append([]float64(nil), l.stats.MeanScores...)
	return s
}

// Predict returns the current network's action values for an encoded state.
func (l *Learner) Predict(state []float64) []float64 {
	return l.agent.Network().Predict(state)
}
