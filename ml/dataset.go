package ml

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"gasoracle/gas"
)

// Dataset holds an eagerly materialized training or validation set: a feature
// matrix of shape [n, gas.FeatureCount] and a parallel label vector. Datasets
// are never mutated after creation.
type Dataset struct {
	Features *mat.Dense
	Labels   []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	rows, _ := d.Features.Dims()
	return rows
}

// Synthesizer generates labeled gas market samples from an explicit seeded
// random source, so tests can reproduce exact datasets.
type Synthesizer struct {
	rng *rand.Rand
}

// NewSynthesizer creates a synthesizer with its own random source.
func NewSynthesizer(seed int64) *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewSource(seed))}
}

// Generate draws n independent samples. Labels follow the reference price
// formula plus uniform noise in [-5, 5), clamped to the valid price range.
func (s *Synthesizer) Generate(n int) (*Dataset, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", ErrInvalidConfig, n)
	}

	features := make([]float64, 0, n*gas.FeatureCount)
	labels := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		snapshot := s.sampleSnapshot()
		noise := s.uniform(-5, 5)
		features = append(features, snapshot.Vector()...)
		labels = append(labels, gas.ClampPrice(gas.BasePrice(snapshot)+noise))
	}

	return &Dataset{
		Features: mat.NewDense(n, gas.FeatureCount, features),
		Labels:   labels,
	}, nil
}

func (s *Synthesizer) sampleSnapshot() gas.Snapshot {
	return gas.Snapshot{
		BaseFee:             s.uniform(20, 200),
		PendingTxCount:      s.uniform(50, 1000),
		AvgGasUsedRatio:     s.uniform(0.3, 0.95),
		BlockUtilization:    s.uniform(0.2, 1.0),
		HourOfDay:           s.uniform(0, 24),
		HighPriorityTxCount: s.uniform(0, 300),
		Weekend:             s.rng.Float64() < 2.0/7.0,
	}
}

func (s *Synthesizer) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
