package qdeepneuro

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func newTestNetwork(seed int64, hidden int) *Network {
	return NewNetwork(InputCount, hidden, OutputCount, rand.New(rand.NewSource(seed)))
}

func TestForward(t *testing.T) {
	n := newTestNetwork(1, HiddenCount)

	in, hidden, out := n.Sizes()
	if in != InputCount || hidden != HiddenCount || out != OutputCount {
		t.Fatalf("unexpected sizes %d %d %d", in, hidden, out)
	}

	data := make([]float64, 5*InputCount)
	for i := range data {
		data[i] = float64(i % 2)
	}
	outputL := n.Forward(mat.NewDense(5, InputCount, data))
	if r, c := outputL.Dims(); r != 5 || c != OutputCount {
		t.Fatalf("expected 5x%d output, got %dx%d", OutputCount, r, c)
	}

	single := n.Predict(data[InputCount : 2*InputCount])
	for j, v := range single {
		if math.Abs(v-outputL.At(1, j)) > 1e-12 {
			t.Errorf("predict and forward disagree at %d: %v vs %v", j, v, outputL.At(1, j))
		}
	}
}

func TestInitBounds(t *testing.T) {
	n := newTestNetwork(2, 64)

	bound := 1 / math.Sqrt(float64(InputCount))
	for _, v := range n.layer1Weights.RawMatrix().Data {
		if math.Abs(v) > bound {
			t.Fatalf("layer 1 weight %v outside %v", v, bound)
		}
	}
	bound = 1 / math.Sqrt(64)
	for _, v := range n.layer2Bias.RawMatrix().Data {
		if math.Abs(v) > bound {
			t.Fatalf("layer 2 bias %v outside %v", v, bound)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model", "model.pth")

	saved := newTestNetwork(3, 32)
	if err := saved.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := newTestNetwork(4, 32)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	state := []float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 1}
	want := saved.Predict(state)
	got := loaded.Predict(state)
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("output %d differs after load: %v vs %v", i, got[i], want[i])
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the model file, found %d entries", len(entries))
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.pth")
	if err := os.WriteFile(garbage, []byte("not a model"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := newTestNetwork(5, 32).Load(garbage); !errors.Is(err, ErrBadWeights) {
		t.Errorf("expected ErrBadWeights for garbage, got %v", err)
	}

	small := filepath.Join(dir, "small.pth")
	if err := newTestNetwork(6, 8).Save(small); err != nil {
		t.Fatal(err)
	}
	n := newTestNetwork(7, 32)
	before := n.Predict(make([]float64, InputCount))
	if err := n.Load(small); !errors.Is(err, ErrBadWeights) {
		t.Errorf("expected ErrBadWeights for shape mismatch, got %v", err)
	}
	after := n.Predict(make([]float64, InputCount))
	for i := range before {
		if before[i] != after[i] {
			t.Fatal("weights changed after a failed load")
		}
	}
}

func TestMarshalBinary(t *testing.T) {
	n := newTestNetwork(8, 16)
	data, err := n.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	other := newTestNetwork(9, 16)
	if err := other.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !mat.Equal(n.layer1Weights, other.layer1Weights) || !mat.Equal(n.layer2Bias, other.layer2Bias) {
		t.Error("weights differ after unmarshal")
	}
}
