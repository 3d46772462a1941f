package snake

import (
	"math/rand"
	"time"
)

const (
	BlockSize     int = 20
	DefaultWidth  int = 640
	DefaultHeight int = 480

	FoodReward  int = 10
	DeathReward int = -10

	// A game ends when the snake wanders this many frames per body segment
	// without dying or eating.
	framesPerSegment int = 100
)

type Direction int

const (
	Right Direction = iota
	Down
	Left
	Up
)

// clockwise holds the turn order used by relative actions.
var clockwise = [4]Direction{Right, Down, Left, Up}

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	case Up:
		return "up"
	}
	return "unknown"
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Action is a one-hot relative move: [straight, turn right, turn left].
type Action [3]int

var (
	Straight  = Action{1, 0, 0}
	TurnRight = Action{0, 1, 0}
	TurnLeft  = Action{0, 0, 1}
)

// Index returns the position of the first hot entry, 0 when none is set.
func (a Action) Index() int {
	for i, v := range a {
		if v > 0 {
			return i
		}
	}
	return 0
}

func (a Action) String() string {
	switch a.Index() {
	case 1:
		return "right"
	case 2:
		return "left"
	}
	return "straight"
}

// ActionFromIndex builds a one-hot action. Out of range indexes mean straight.
func ActionFromIndex(i int) Action {
	var a Action
	if i < 0 || i >= len(a) {
		i = 0
	}
	a[i] = 1
	return a
}

type Game struct {
	width     int
	height    int
	rnd       *rand.Rand
	direction Direction
	body      []Point
	food      Point
	score     int
	frame     int
}

type Option func(*Game)

// WithSize sets the board size in pixels. Sizes are rounded down to whole blocks.
func WithSize(width, height int) Option {
	return func(g *Game) {
		g.width = width / BlockSize * BlockSize
		g.height = height / BlockSize * BlockSize
	}
}

func WithRand(rnd *rand.Rand) Option {
	return func(g *Game) {
		g.rnd = rnd
	}
}

func New(opts ...Option) *Game {
	g := &Game{
		width:  DefaultWidth,
		height: DefaultHeight,
	}
	for _, o := range opts {
		o(g)
	}
	if g.rnd == nil {
		g.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	g.Reset()
	return g
}

func (g *Game) Reset() {
	g.direction = Right

	head := Point{X: g.width / 2 / BlockSize * BlockSize, Y: g.height / 2 / BlockSize * BlockSize}
	g.body = []Point{
		head,
		{X: head.X - BlockSize, Y: head.Y},
		{X: head.X - 2*BlockSize, Y: head.Y},
	}

	g.score = 0
	g.frame = 0
	g.placeFood()
}

// placeFood reports false when the snake covers the whole board.
func (g *Game) placeFood() bool {
	cols := (g.width - BlockSize) / BlockSize
	rows := (g.height - BlockSize) / BlockSize
	if len(g.body) >= (cols+1)*(rows+1) {
		return false
	}

	for {
		g.food = Point{
			X: g.rnd.Intn(cols+1) * BlockSize,
			Y: g.rnd.Intn(rows+1) * BlockSize,
		}
		if !g.onBody(g.food, 0) {
			return true
		}
	}
}

// PlayStep advances the game by one frame.
func (g *Game) PlayStep(action Action) (int, bool, int) {
	g.frame++

	g.turn(action)
	head := g.next(g.body[0], g.direction)
	g.body = append([]Point{head}, g.body...)

	if g.IsCollision(head) || g.frame > framesPerSegment*len(g.body) {
		return DeathReward, true, g.score
	}

	reward := 0
	if head == g.food {
		g.score++
		reward = FoodReward
		// Nothing left to eat, the game is won.
		if !g.placeFood() {
			return reward, true, g.score
		}
	} else {
		g.body = g.body[:len(g.body)-1]
	}

	return reward, false, g.score
}

// IsCollision reports whether p is off the board or on the body behind the head.
func (g *Game) IsCollision(p Point) bool {
	if p.X > g.width-BlockSize || p.X < 0 || p.Y > g.height-BlockSize || p.Y < 0 {
		return true
	}

	return g.onBody(p, 1)
}

func (g *Game) onBody(p Point, from int) bool {
	for _, b := range g.body[from:] {
		if b == p {
			return true
		}
	}
	return false
}

func (g *Game) turn(action Action) {
	idx := 0
	for i, d := range clockwise {
		if d == g.direction {
			idx = i
		}
	}

	switch action.Index() {
	case 1:
		g.direction = clockwise[(idx+1)%4]
	case 2:
		g.direction = clockwise[(idx+3)%4]
	}
}

func (g *Game) next(p Point, d Direction) Point {
	switch d {
	case Right:
		p.X += BlockSize
	case Left:
		p.X -= BlockSize
	case Down:
		p.Y += BlockSize
	case Up:
		p.Y -= BlockSize
	}
	return p
}

func (g *Game) Head() Point          { return g.body[0] }
func (g *Game) Food() Point          { return g.food }
func (g *Game) Direction() Direction { return g.direction }
func (g *Game) Score() int           { return g.score }
func (g *Game) Width() int           { return g.width }
func (g *Game) Height() int          { return g.height }

func (g *Game) Body() []Point {
	body := make([]Point, len(g.body))
	copy(body, g.body)
	return body
}
