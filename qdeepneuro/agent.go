package qdeepneuro

import (
	"io/fs"
	"math/rand"
	"time"

	"github.com/Antonite/snake_rl/snake"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Params are the agent hyper-parameters.
type Params struct {
	MaxMemory    int
	BatchSize    int
	LearningRate float64
	Gamma        float64
	HiddenSize   int
	// The agent explores with probability (ExploreGames-games)/ExploreRange.
	ExploreGames int
	ExploreRange int
}

func DefaultParams() Params {
	return Params{
		MaxMemory:    100_000,
		BatchSize:    1000,
		LearningRate: 0.001,
		Gamma:        0.9,
		HiddenSize:   HiddenCount,
		ExploreGames: 80,
		ExploreRange: 200,
	}
}

type Agent struct {
	// Games is the number of finished games, it drives exploration.
	Games int

	params  Params
	rnd     *rand.Rand
	network *Network
	trainer *trainer
	memory  *memory
}

type AgentOption func(*Agent)

func WithAgentRand(rnd *rand.Rand) AgentOption {
	return func(a *Agent) {
		a.rnd = rnd
	}
}

// WithNetwork shares an existing network instead of creating a fresh one.
func WithNetwork(n *Network) AgentOption {
	return func(a *Agent) {
		a.network = n
	}
}

func NewAgent(params Params, opts ...AgentOption) *Agent {
	a := &Agent{params: params}
	for _, o := range opts {
		o(a)
	}
	if a.rnd == nil {
		a.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if a.network == nil {
		a.network = NewNetwork(InputCount, params.HiddenSize, OutputCount, a.rnd)
	}

	a.trainer = newTrainer(a.network, params.LearningRate, params.Gamma)
	a.memory = newMemory(params.MaxMemory, a.rnd)
	return a
}

func (a *Agent) Network() *Network {
	return a.network
}

// LoadCheckpoint restores weights from path. A missing file leaves the fresh weights in place.
func (a *Agent) LoadCheckpoint(path string) error {
	err := a.network.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", path).Warn("no checkpoint found, starting with fresh weights")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to load checkpoint %s", path)
	}

	log.WithField("path", path).Info("loaded checkpoint")
	return nil
}

// GetState encodes the game into the eleven features the network reads:
// danger straight/right/left, current direction left/right/up/down and
// food left/right/up/down.
func GetState(g *snake.Game) []float64 {
	head := g.Head()
	pointL := snake.Point{X: head.X - snake.BlockSize, Y: head.Y}
	pointR := snake.Point{X: head.X + snake.BlockSize, Y: head.Y}
	pointU := snake.Point{X: head.X, Y: head.Y - snake.BlockSize}
	pointD := snake.Point{X: head.X, Y: head.Y + snake.BlockSize}

	dirL := g.Direction() == snake.Left
	dirR := g.Direction() == snake.Right
	dirU := g.Direction() == snake.Up
	dirD := g.Direction() == snake.Down

	food := g.Food()
	return []float64{
		// Danger straight
		bit((dirR && g.IsCollision(pointR)) ||
			(dirL && g.IsCollision(pointL)) ||
			(dirU && g.IsCollision(pointU)) ||
			(dirD && g.IsCollision(pointD))),

		// Danger right
		bit((dirU && g.IsCollision(pointR)) ||
			(dirD && g.IsCollision(pointL)) ||
			(dirL && g.IsCollision(pointU)) ||
			(dirR && g.IsCollision(pointD))),

		// Danger left
		bit((dirD && g.IsCollision(pointR)) ||
			(dirU && g.IsCollision(pointL)) ||
			(dirR && g.IsCollision(pointU)) ||
			(dirL && g.IsCollision(pointD))),

		bit(dirL),
		bit(dirR),
		bit(dirU),
		bit(dirD),

		bit(food.X < head.X),
		bit(food.X > head.X),
		bit(food.Y < head.Y),
		bit(food.Y > head.Y),
	}
}

func bit(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (a *Agent) Remember(state []float64, action snake.Action, reward float64, next []float64, done bool) {
	a.memory.add(transition(state, action, reward, next, done))
}

func (a *Agent) MemoryLen() int {
	return a.memory.len()
}

// TrainLongMemory replays a random batch from memory.
func (a *Agent) TrainLongMemory() float64 {
	return a.trainer.trainStep(a.memory.sample(a.params.BatchSize))
}

// TrainShortMemory trains on the transition that was just played.
func (a *Agent) TrainShortMemory(state []float64, action snake.Action, reward float64, next []float64, done bool) float64 {
	return a.trainer.trainStep([]Transition{transition(state, action, reward, next, done)})
}

// GetAction picks a random move while the agent is young, the best predicted move otherwise.
func (a *Agent) GetAction(state []float64) snake.Action {
	epsilon := a.params.ExploreGames - a.Games
	if a.rnd.Intn(a.params.ExploreRange+1) < epsilon {
		return snake.ActionFromIndex(a.rnd.Intn(OutputCount))
	}

	return a.BestAction(state)
}

func (a *Agent) BestAction(state []float64) snake.Action {
	return snake.ActionFromIndex(floats.MaxIdx(a.network.Predict(state)))
}
