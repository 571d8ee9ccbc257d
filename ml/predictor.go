package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Predictor serves point predictions from a trained network. Each predictor
// owns its in-memory copy of the parameters, so independent predictors can
// share an artifact without coordination.
type Predictor struct {
	model *GasPriceNet
}

// NewPredictor loads an artifact and prepares it for inference.
func NewPredictor(artifactPath string, device Device) (*Predictor, error) {
	model, err := LoadModel(artifactPath, device)
	if err != nil {
		return nil, err
	}
	return &Predictor{model: model}, nil
}

// PredictorFromModel wraps an already trained model, e.g. straight after Train.
func PredictorFromModel(model *GasPriceNet) *Predictor {
	return &Predictor{model: model}
}

// Predict maps a single feature vector to a predicted gas price. The vector
// is wrapped as a batch of one and forwarded without gradient bookkeeping.
func (p *Predictor) Predict(features []float64) (float64, error) {
	if len(features) != InputSize {
		return 0, fmt.Errorf("%w: expected %d features, got %d", ErrInvalidConfig, InputSize, len(features))
	}
	input := mat.NewDense(1, InputSize, features)
	out := p.model.ForwardEval(input)
	return out.At(0, 0), nil
}
