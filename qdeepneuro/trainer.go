package qdeepneuro

import (
	"math"

	"github.com/Antonite/snake_rl/snake"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	adamBeta1   float64 = 0.9
	adamBeta2   float64 = 0.999
	adamEpsilon float64 = 1e-8
)

// trainer fits the network to one-step Q-learning targets with MSE loss and Adam.
type trainer struct {
	network      *Network
	learningRate float64
	gamma        float64

	steps int
	m     []*mat.Dense
	v     []*mat.Dense
}

func newTrainer(network *Network, learningRate, gamma float64) *trainer {
	t := &trainer{
		network:      network,
		learningRate: learningRate,
		gamma:        gamma,
	}
	for _, p := range network.params() {
		r, c := p.Dims()
		t.m = append(t.m, mat.NewDense(r, c, nil))
		t.v = append(t.v, mat.NewDense(r, c, nil))
	}
	return t
}

// trainStep runs one gradient step over the batch and returns the loss before the step.
func (t *trainer) trainStep(batch []Transition) float64 {
	if len(batch) == 0 {
		return 0
	}

	inputs, _, _ := t.network.Sizes()
	stateV := make([]float64, 0, len(batch)*inputs)
	nextV := make([]float64, 0, len(batch)*inputs)
	for _, tr := range batch {
		stateV = append(stateV, tr.State...)
		nextV = append(nextV, tr.NextState...)
	}
	stateL := mat.NewDense(len(batch), inputs, stateV)
	nextL := mat.NewDense(len(batch), inputs, nextV)

	t.network.mu.Lock() // Lock weights
	defer t.network.mu.Unlock()

	_, _, nextOutputL := t.network.internalNeuro(nextL)
	hiddenInput, hiddenL, outputL := t.network.internalNeuro(stateL)

	target := mat.DenseCopyOf(outputL)
	for i, tr := range batch {
		q := tr.Reward
		if !tr.Done {
			q += t.gamma * floats.Max(mat.Row(nil, i, nextOutputL))
		}
		target.Set(i, tr.Action.Index(), q)
	}

	// Error rate and its gradient for mean squared error
	rows, cols := outputL.Dims()
	count := float64(rows * cols)
	errL := mat.NewDense(rows, cols, nil)
	errL.Sub(outputL, target)

	var loss float64
	for _, e := range errL.RawMatrix().Data {
		loss += e * e
	}
	loss /= count
	errL.Scale(2/count, errL)

	// Output layer
	var chngOut mat.Dense
	chngOut.Mul(hiddenL.T(), errL)
	chngOutBias := sumRows(errL)

	// Hidden layer
	var chngHidden mat.Dense
	chngHidden.Mul(errL, t.network.layer2Weights.T())
	chngHidden.Apply(func(i, j int, v float64) float64 {
		return v * derRelu(hiddenInput.At(i, j))
	}, &chngHidden)

	var chngL1 mat.Dense
	chngL1.Mul(stateL.T(), &chngHidden)
	chngL1Bias := sumRows(&chngHidden)

	t.adam(t.network.params(), []*mat.Dense{&chngL1, chngL1Bias, &chngOut, chngOutBias})
	return loss
}

func (t *trainer) adam(params, grads []*mat.Dense) {
	t.steps++
	c1 := 1 - math.Pow(adamBeta1, float64(t.steps))
	c2 := 1 - math.Pow(adamBeta2, float64(t.steps))

	for i, p := range params {
		pd := p.RawMatrix().Data
		gd := grads[i].RawMatrix().Data
		md := t.m[i].RawMatrix().Data
		vd := t.v[i].RawMatrix().Data
		for j, g := range gd {
			md[j] = adamBeta1*md[j] + (1-adamBeta1)*g
			vd[j] = adamBeta2*vd[j] + (1-adamBeta2)*g*g
			pd[j] -= t.learningRate * (md[j] / c1) / (math.Sqrt(vd[j]/c2) + adamEpsilon)
		}
	}
}

func sumRows(matrix *mat.Dense) *mat.Dense {
	rows, cols := matrix.Dims()
	sum := mat.NewDense(1, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum.Set(0, j, sum.At(0, j)+matrix.At(i, j))
		}
	}
	return sum
}

func transition(state []float64, action snake.Action, reward float64, next []float64, done bool) Transition {
	return Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: next,
		Done:      done,
	}
}
