package qdeepneuro

import (
	"math/rand"

	"github.com/Antonite/snake_rl/snake"
)

type Transition struct {
	State     []float64
	Action    snake.Action
	Reward    float64
	NextState []float64
	Done      bool
}

// memory is a fixed size replay buffer. Once full the oldest transitions are overwritten.
type memory struct {
	transitions []Transition
	position    int
	size        int
	rnd         *rand.Rand
}

func newMemory(capacity int, rnd *rand.Rand) *memory {
	if capacity < 1 {
		capacity = 1
	}
	return &memory{
		transitions: make([]Transition, capacity),
		rnd:         rnd,
	}
}

func (m *memory) add(t Transition) {
	m.transitions[m.position] = t
	m.position = (m.position + 1) % len(m.transitions)
	if m.size < len(m.transitions) {
		m.size++
	}
}

func (m *memory) len() int {
	return m.size
}

// sample returns n distinct random transitions, or everything when there are n or fewer.
func (m *memory) sample(n int) []Transition {
	if m.size <= n {
		all := make([]Transition, m.size)
		copy(all, m.ordered())
		return all
	}

	batch := make([]Transition, n)
	for i, idx := range m.rnd.Perm(m.size)[:n] {
		batch[i] = m.transitions[idx]
	}
	return batch
}

// ordered returns the stored transitions oldest first.
func (m *memory) ordered() []Transition {
	if m.size < len(m.transitions) {
		return m.transitions[:m.size]
	}
	return append(m.transitions[m.position:len(m.transitions):len(m.transitions)], m.transitions[:m.position]...)
}
