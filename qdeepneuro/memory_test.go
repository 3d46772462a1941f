package qdeepneuro

import (
	"math/rand"
	"testing"
)

func fill(m *memory, n int) {
	for i := 0; i < n; i++ {
		m.add(Transition{Reward: float64(i)})
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	m := newMemory(5, rand.New(rand.NewSource(1)))
	fill(m, 8)

	if m.len() != 5 {
		t.Fatalf("expected 5 transitions, got %d", m.len())
	}

	all := m.sample(10)
	for i, tr := range all {
		if want := float64(i + 3); tr.Reward != want {
			t.Errorf("position %d: expected reward %v, got %v", i, want, tr.Reward)
		}
	}
}

func TestMemorySampleWithoutReplacement(t *testing.T) {
	m := newMemory(100, rand.New(rand.NewSource(2)))
	fill(m, 50)

	batch := m.sample(20)
	if len(batch) != 20 {
		t.Fatalf("expected 20 transitions, got %d", len(batch))
	}
	seen := make(map[float64]bool)
	for _, tr := range batch {
		if seen[tr.Reward] {
			t.Errorf("transition %v sampled twice", tr.Reward)
		}
		seen[tr.Reward] = true
	}
}

func TestMemorySampleSmall(t *testing.T) {
	m := newMemory(100, rand.New(rand.NewSource(3)))
	if len(m.sample(10)) != 0 {
		t.Error("expected no transitions from empty memory")
	}

	fill(m, 10)
	batch := m.sample(10)
	if len(batch) != 10 {
		t.Fatalf("expected all 10 transitions, got %d", len(batch))
	}
	batch[0].Reward = 99
	if m.transitions[0].Reward == 99 {
		t.Error("sample shares storage with memory")
	}
}
