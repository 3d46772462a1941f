package qdeepneuro

import (
	"bytes"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	InputCount  int = 11
	HiddenCount int = 256
	OutputCount int = 3
)

var (
	ErrBadWeights = errors.New("bad weight file")

	weightsMagic = []byte("SNKQ\x01")
)

// Network is a fully connected input -> ReLU hidden -> linear output net.
// Rows of an input matrix are samples.
type Network struct {
	mu            sync.RWMutex
	layer1Weights *mat.Dense
	layer1Bias    *mat.Dense
	layer2Weights *mat.Dense
	layer2Bias    *mat.Dense
}

func NewNetwork(inputs, hidden, outputs int, rnd *rand.Rand) *Network {
	return &Network{
		layer1Weights: uniform(inputs, hidden, inputs, rnd),
		layer1Bias:    uniform(1, hidden, inputs, rnd),
		layer2Weights: uniform(hidden, outputs, hidden, rnd),
		layer2Bias:    uniform(1, outputs, hidden, rnd),
	}
}

// uniform draws from [-1/sqrt(fanIn), 1/sqrt(fanIn)].
func uniform(rows, cols, fanIn int, rnd *rand.Rand) *mat.Dense {
	bound := 1 / math.Sqrt(float64(fanIn))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rnd.Float64()*2 - 1) * bound
	}
	return mat.NewDense(rows, cols, data)
}

func (n *Network) Sizes() (int, int, int) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	in, hidden := n.layer1Weights.Dims()
	_, out := n.layer2Weights.Dims()
	return in, hidden, out
}

// Forward runs a batch through the network.
func (n *Network) Forward(inputs *mat.Dense) *mat.Dense {
	n.mu.RLock()
	defer n.mu.RUnlock()

	_, _, outputL := n.internalNeuro(inputs)
	return outputL
}

// Predict runs a single state through the network.
func (n *Network) Predict(state []float64) []float64 {
	outputL := n.Forward(mat.NewDense(1, len(state), state))
	return mat.Row(nil, 0, outputL)
}

// internalNeuro returns the hidden layer before and after activation and the output layer.
// Callers hold the lock.
func (n *Network) internalNeuro(inputs *mat.Dense) (*mat.Dense, *mat.Dense, *mat.Dense) {
	rows, _ := inputs.Dims()
	_, hidden := n.layer1Weights.Dims()
	_, outputs := n.layer2Weights.Dims()

	hiddenInput := mat.NewDense(rows, hidden, nil)
	hiddenInput.Mul(inputs, n.layer1Weights)
	addBias(hiddenInput, n.layer1Bias)

	hiddenL := mat.DenseCopyOf(hiddenInput)
	applyRelu(hiddenL)

	outputL := mat.NewDense(rows, outputs, nil)
	outputL.Mul(hiddenL, n.layer2Weights)
	addBias(outputL, n.layer2Bias)

	return hiddenInput, hiddenL, outputL
}

func (n *Network) params() []*mat.Dense {
	return []*mat.Dense{n.layer1Weights, n.layer1Bias, n.layer2Weights, n.layer2Bias}
}

func addBias(matrix, bias *mat.Dense) {
	matrix.Apply(func(i, j int, v float64) float64 {
		return v + bias.At(0, j)
	}, matrix)
}

func applyRelu(matrix *mat.Dense) {
	matrix.Apply(func(i, j int, v float64) float64 {
		return relu(v)
	}, matrix)
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}

	return x
}

func derRelu(x float64) float64 {
	if x <= 0 {
		return 0
	}

	return 1
}

// MarshalBinary encodes the weights as a snappy stream of gonum matrices.
func (n *Network) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Network) UnmarshalBinary(data []byte) error {
	return n.readFrom(bytes.NewReader(data))
}

func (n *Network) writeTo(w io.Writer) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	sw := snappy.NewBufferedWriter(w)
	if _, err := sw.Write(weightsMagic); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for i, p := range n.params() {
		if _, err := p.MarshalBinaryTo(sw); err != nil {
			return errors.Wrapf(err, "failed to write layer %d", i)
		}
	}
	return errors.Wrap(sw.Close(), "failed to flush weights")
}

func (n *Network) readFrom(r io.Reader) error {
	sr := snappy.NewReader(r)

	header := make([]byte, len(weightsMagic))
	if _, err := io.ReadFull(sr, header); err != nil {
		return errors.Wrapf(ErrBadWeights, "header: %v", err)
	}
	if !bytes.Equal(header, weightsMagic) {
		return errors.Wrap(ErrBadWeights, "unknown header")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	current := n.params()
	loaded := make([]*mat.Dense, len(current))
	for i, p := range current {
		var m mat.Dense
		if _, err := m.UnmarshalBinaryFrom(sr); err != nil {
			return errors.Wrapf(ErrBadWeights, "layer %d: %v", i, err)
		}
		wr, wc := p.Dims()
		if r, c := m.Dims(); r != wr || c != wc {
			return errors.Wrapf(ErrBadWeights, "layer %d is %dx%d, want %dx%d", i, r, c, wr, wc)
		}
		loaded[i] = &m
	}

	n.layer1Weights, n.layer1Bias = loaded[0], loaded[1]
	n.layer2Weights, n.layer2Bias = loaded[2], loaded[3]
	return nil
}

// Save writes the weights to path, creating parent directories.
func (n *Network) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create model directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create model file")
	}
	defer os.Remove(tmp.Name())

	if err := n.writeTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close model file")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to replace model file")
}

// Load replaces the weights with the ones stored at path.
func (n *Network) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return n.readFrom(f)
}
