package ml

import (
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"gasoracle/gas"
)

// Network architecture. The input width is locked to the gas feature contract.
const (
	InputSize  = gas.FeatureCount
	HiddenSize = 64
	OutputSize = 1
)

// Device selects the execution target for tensor operations. Only the host
// CPU is available; the value is threaded through constructors so callers and
// artifacts record where a model runs.
type Device string

// CPU is the default execution target.
const CPU Device = "cpu"

func (d Device) String() string { return string(d) }

// Tensor is a named parameter with its gradient accumulator. Parameters are
// owned by the model; the optimizer mutates them in place through Step.
type Tensor struct {
	Name  string
	Rows  int
	Cols  int
	Value *mat.Dense
	Grad  *mat.Dense
}

func newTensor(name string, rows, cols int) *Tensor {
	return &Tensor{
		Name:  name,
		Rows:  rows,
		Cols:  cols,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

func (t *Tensor) zeroGrad() {
	t.Grad.Zero()
}

// linear is a fully connected layer. Weight has shape [out, in] and bias
// [1, out], matching the persisted artifact layout.
type linear struct {
	weight *Tensor
	bias   *Tensor
}

func newLinear(name string, in, out int, rng *rand.Rand) *linear {
	l := &linear{
		weight: newTensor(name+".weight", out, in),
		bias:   newTensor(name+".bias", 1, out),
	}
	// Magnitude-bounded uniform init scaled by fan-in.
	bound := 1.0 / math.Sqrt(float64(in))
	for _, tensor := range []*Tensor{l.weight, l.bias} {
		data := tensor.Value.RawMatrix().Data
		for i := range data {
			data[i] = -bound + rng.Float64()*2*bound
		}
	}
	return l
}

// forward computes x*W^T + b for a batch x of shape [B, in].
func (l *linear) forward(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	var out mat.Dense
	out.Mul(x, l.weight.Value.T())
	bias := l.bias.Value.RawRowView(0)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
	return &out
}

// GasPriceNet is a 2-layer feed-forward regression network mapping the seven
// gas market features to a single predicted price.
type GasPriceNet struct {
	device Device
	fc1    *linear
	fc2    *linear

	// Activations cached by Forward for the following Backward call.
	lastInput *mat.Dense
	lastZ1    *mat.Dense
	lastA1    *mat.Dense
}

// NewGasPriceNet creates a network with freshly initialized parameters.
func NewGasPriceNet(device Device) *GasPriceNet {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &GasPriceNet{
		device: device,
		fc1:    newLinear("fc1", InputSize, HiddenSize, rng),
		fc2:    newLinear("fc2", HiddenSize, OutputSize, rng),
	}
}

// Device returns the execution target the network was created on.
func (n *GasPriceNet) Device() Device { return n.device }

// Parameters returns the named tensor collection in artifact order.
func (n *GasPriceNet) Parameters() []*Tensor {
	return []*Tensor{n.fc1.weight, n.fc1.bias, n.fc2.weight, n.fc2.bias}
}

// Forward runs the training-mode forward pass on a batch of shape
// [B, InputSize], caching activations for Backward.
func (n *GasPriceNet) Forward(x *mat.Dense) *mat.Dense {
	z1 := n.fc1.forward(x)
	a1 := relu(z1)
	out := n.fc2.forward(a1)

	n.lastInput = x
	n.lastZ1 = z1
	n.lastA1 = a1
	return out
}

// ForwardEval runs the inference forward pass. No activations are retained,
// so it must not be followed by Backward.
func (n *GasPriceNet) ForwardEval(x *mat.Dense) *mat.Dense {
	return n.fc2.forward(relu(n.fc1.forward(x)))
}

// ZeroGrad clears all parameter gradients.
func (n *GasPriceNet) ZeroGrad() {
	for _, p := range n.Parameters() {
		p.zeroGrad()
	}
}

// Backward accumulates parameter gradients for the batch last passed to
// Forward, given the loss gradient with respect to the output [B, 1].
func (n *GasPriceNet) Backward(dOut *mat.Dense) {
	// fc2: dW2 = dOut^T * a1, db2 = column sums of dOut.
	var dW2 mat.Dense
	dW2.Mul(dOut.T(), n.lastA1)
	accumulate(n.fc2.weight.Grad, &dW2)
	accumulate(n.fc2.bias.Grad, colSums(dOut))

	// Hidden layer: dA1 = dOut * W2, gated by the ReLU mask on z1.
	var dA1 mat.Dense
	dA1.Mul(dOut, n.fc2.weight.Value)
	dZ1 := reluBackward(&dA1, n.lastZ1)

	// fc1: dW1 = dZ1^T * x, db1 = column sums of dZ1.
	var dW1 mat.Dense
	dW1.Mul(dZ1.T(), n.lastInput)
	accumulate(n.fc1.weight.Grad, &dW1)
	accumulate(n.fc1.bias.Grad, colSums(dZ1))
}

func relu(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, x)
	return out
}

// reluBackward zeroes gradient entries where the pre-activation was non-positive.
func reluBackward(grad, preAct *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		gradRow := grad.RawRowView(i)
		actRow := preAct.RawRowView(i)
		outRow := out.RawRowView(i)
		for j := 0; j < cols; j++ {
			if actRow[j] > 0 {
				outRow[j] = gradRow[j]
			}
		}
	}
	return out
}

func colSums(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(1, cols, nil)
	sums := out.RawRowView(0)
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := 0; j < cols; j++ {
			sums[j] += row[j]
		}
	}
	return out
}

func accumulate(dst, delta *mat.Dense) {
	dst.Add(dst, delta)
}
