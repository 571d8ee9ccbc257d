package ml

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam default hyperparameters.
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// Adam is an adaptive per-parameter optimizer. It holds a non-owning
// reference to the model's tensors plus its own moment estimates, and mutates
// parameter values in place on each Step.
type Adam struct {
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	step   int
	params []*Tensor
	m      []*mat.Dense
	v      []*mat.Dense
}

// NewAdam binds an optimizer to a parameter collection.
func NewAdam(params []*Tensor, learningRate float64) *Adam {
	opt := &Adam{
		lr:     learningRate,
		beta1:  adamBeta1,
		beta2:  adamBeta2,
		eps:    adamEpsilon,
		params: params,
		m:      make([]*mat.Dense, len(params)),
		v:      make([]*mat.Dense, len(params)),
	}
	for i, p := range params {
		opt.m[i] = mat.NewDense(p.Rows, p.Cols, nil)
		opt.v[i] = mat.NewDense(p.Rows, p.Cols, nil)
	}
	return opt
}

// Step applies one bias-corrected Adam update from the accumulated gradients.
func (a *Adam) Step() {
	a.step++
	mCorr := 1 - math.Pow(a.beta1, float64(a.step))
	vCorr := 1 - math.Pow(a.beta2, float64(a.step))

	for i, p := range a.params {
		values := p.Value.RawMatrix().Data
		grads := p.Grad.RawMatrix().Data
		m := a.m[i].RawMatrix().Data
		v := a.v[i].RawMatrix().Data
		for j := range values {
			g := grads[j]
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g
			mHat := m[j] / mCorr
			vHat := v[j] / vCorr
			values[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
