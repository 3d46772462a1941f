package qdeepneuro

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Antonite/snake_rl/snake"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

type fakeRecorder struct {
	games       []*GameResult
	checkpoints [][]byte
}

func (r *fakeRecorder) RecordGame(ctx context.Context, result *GameResult) error {
	r.games = append(r.games, result)
	return nil
}

func (r *fakeRecorder) RecordCheckpoint(ctx context.Context, run string, weights []byte) error {
	r.checkpoints = append(r.checkpoints, weights)
	return errors.New("mirror offline")
}

type fakePlotter struct {
	calls     int
	lastMeans []float64
}

func (p *fakePlotter) Plot(scores []int, means []float64) error {
	p.calls++
	p.lastMeans = means
	return nil
}

type fakeObserver struct {
	games  int
	losses int
}

func (o *fakeObserver) ObserveGame(score, best int, mean float64) { o.games++ }
func (o *fakeObserver) ObserveLoss(loss float64)                  { o.losses++ }

func newTestLearner(t *testing.T, opts ...LearnerOption) *Learner {
	t.Helper()
	a := newTestAgent(20, testParams())
	g := snake.New(snake.WithSize(200, 200), snake.WithRand(rand.New(rand.NewSource(20))))
	return NewLearner(a, append([]LearnerOption{WithGame(g)}, opts...)...)
}

func TestLearnStopsAtGameLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model", "model.pth")
	rec := &fakeRecorder{}
	plot := &fakePlotter{}
	obs := &fakeObserver{}

	l := newTestLearner(t,
		WithMaxGames(4),
		WithModelPath(path),
		WithRecorder(rec),
		WithPlotter(plot),
		WithObserver(obs),
	)
	if err := l.Learn(context.Background()); err != nil {
		t.Fatalf("learn failed: %v", err)
	}

	stats := l.Stats()
	if stats.Games != 4 || len(stats.Scores) != 4 || len(stats.MeanScores) != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Run != l.ID() {
		t.Errorf("expected run %s, got %s", l.ID(), stats.Run)
	}

	total, best := 0, 0
	for _, s := range stats.Scores {
		total += s
		if s > best {
			best = s
		}
	}
	if stats.Best != best {
		t.Errorf("expected best %d, got %d", best, stats.Best)
	}
	if want := float64(total) / 4; stats.Mean != want || stats.MeanScores[3] != want {
		t.Errorf("expected mean %v, got %v", want, stats.Mean)
	}

	if len(rec.games) != 4 || rec.games[3].Game != 4 {
		t.Errorf("expected 4 recorded games, got %d", len(rec.games))
	}
	if plot.calls != 4 || len(plot.lastMeans) != 4 {
		t.Errorf("expected 4 plots, got %d", plot.calls)
	}
	if obs.games != 4 || obs.losses != 4 {
		t.Errorf("unexpected observer calls %+v", obs)
	}

	_, err := os.Stat(path)
	if best > 0 {
		if err != nil {
			t.Errorf("expected model to be saved: %v", err)
		}
		if len(rec.checkpoints) == 0 {
			t.Error("expected checkpoint to be recorded")
		}
	} else if err == nil {
		t.Error("model saved without a scoring game")
	}
}

func TestLearnCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newTestLearner(t)
	if err := l.Learn(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if l.Stats().Games != 0 {
		t.Error("no game should have been played")
	}
}

func TestLearnRender(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLearner(t, WithMaxGames(1), WithRender(&buf, false, 0))
	if err := l.Learn(context.Background()); err != nil {
		t.Fatalf("learn failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Score:") {
		t.Error("expected rendered frames")
	}
	if snap := l.Snapshot(); snap.Width != 200 || len(snap.Body) < 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestSaveOnlyOnNewBest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model", "model.pth")
	rec := &fakeRecorder{}
	l := newTestLearner(t, WithModelPath(path), WithRecorder(rec))
	logger := log.WithField("run", l.ID())

	for i, score := range []int{1, 1, 2} {
		l.agent.Games++
		// the recorder fails every checkpoint, which must not stop training
		if err := l.finishGame(context.Background(), logger, score, 10, 0); err != nil {
			t.Fatalf("game %d: %v", i+1, err)
		}
		if i == 0 {
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("expected model after the first scoring game: %v", err)
			}
		}
	}

	if len(rec.checkpoints) != 2 {
		t.Errorf("expected 2 checkpoints, got %d", len(rec.checkpoints))
	}
	if stats := l.Stats(); stats.Best != 2 || stats.Games != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}

	saved := newTestNetwork(99, testParams().HiddenSize)
	if err := saved.Load(path); err != nil {
		t.Fatalf("saved model does not load: %v", err)
	}
	mirrored := newTestNetwork(98, testParams().HiddenSize)
	if err := mirrored.UnmarshalBinary(rec.checkpoints[1]); err != nil {
		t.Fatalf("mirrored checkpoint does not decode: %v", err)
	}
	state := oneHot(0)
	if saved.Predict(state)[0] != mirrored.Predict(state)[0] {
		t.Error("saved model and mirrored checkpoint differ")
	}
}

// straightNetwork always values going straight above turning.
func straightNetwork(hidden int) *Network {
	n := newTestNetwork(30, hidden)
	n.layer2Weights = mat.NewDense(hidden, OutputCount, nil)
	n.layer2Bias = mat.NewDense(1, OutputCount, []float64{1, 0, 0})
	return n
}

func TestLearnSavesWinningGame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pth")
	rec := &fakeRecorder{}

	p := testParams()
	p.ExploreGames = 0
	a := NewAgent(p, WithAgentRand(rand.New(rand.NewSource(31))), WithNetwork(straightNetwork(p.HiddenSize)))
	// Four cells: the food can only be straight ahead, eating it fills the board.
	g := snake.New(snake.WithSize(80, 20), snake.WithRand(rand.New(rand.NewSource(31))))
	l := NewLearner(a, WithGame(g), WithMaxGames(3), WithModelPath(path), WithRecorder(rec))

	if err := l.Learn(context.Background()); err != nil {
		t.Fatalf("learn failed: %v", err)
	}

	stats := l.Stats()
	for i, s := range stats.Scores {
		if s != 1 {
			t.Fatalf("game %d scored %d, expected 1 (scores %v)", i+1, s, stats.Scores)
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected model to be saved: %v", err)
	}
	if len(rec.checkpoints) != 1 {
		t.Errorf("expected only the first win to be checkpointed, got %d", len(rec.checkpoints))
	}
	if len(rec.games) != 3 {
		t.Errorf("expected 3 recorded games, got %d", len(rec.games))
	}
}
