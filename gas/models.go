package gas

import "fmt"

// FeatureCount is the fixed width of a feature vector. The model's input
// layer is sized against it; changing feature order or count changes both.
const FeatureCount = 7

// Snapshot captures the gas market indicators a prediction is made from.
type Snapshot struct {
	BaseFee             float64 `json:"base_fee"`
	PendingTxCount      float64 `json:"pending_tx_count"`
	AvgGasUsedRatio     float64 `json:"avg_gas_used_ratio"`
	BlockUtilization    float64 `json:"block_utilization"`
	HourOfDay           float64 `json:"hour_of_day"`
	HighPriorityTxCount float64 `json:"high_priority_tx_count"`
	Weekend             bool    `json:"is_weekend"`
}

// Prediction is the serving-path response for a snapshot.
type Prediction struct {
	Snapshot       Snapshot `json:"snapshot"`
	PredictedPrice float64  `json:"predicted_price_gwei"`
}

// FeatureNames returns the feature columns in vector order.
func FeatureNames() []string {
	return []string{
		"base_fee",
		"pending_tx_count",
		"avg_gas_used_ratio",
		"block_utilization",
		"hour_of_day",
		"high_priority_tx_count",
		"is_weekend",
	}
}

// Vector flattens the snapshot into the fixed feature order consumed by the model.
func (s Snapshot) Vector() []float64 {
	weekend := 0.0
	if s.Weekend {
		weekend = 1.0
	}
	return []float64{
		s.BaseFee,
		s.PendingTxCount,
		s.AvgGasUsedRatio,
		s.BlockUtilization,
		s.HourOfDay,
		s.HighPriorityTxCount,
		weekend,
	}
}

// Validate checks the snapshot against the ranges the model was trained on.
func (s Snapshot) Validate() error {
	if s.BaseFee <= 0 {
		return fmt.Errorf("base_fee must be positive, got %v", s.BaseFee)
	}
	if s.PendingTxCount < 0 {
		return fmt.Errorf("pending_tx_count must be non-negative, got %v", s.PendingTxCount)
	}
	if s.AvgGasUsedRatio < 0 || s.AvgGasUsedRatio > 1 {
		return fmt.Errorf("avg_gas_used_ratio must be in [0,1], got %v", s.AvgGasUsedRatio)
	}
	if s.BlockUtilization < 0 || s.BlockUtilization > 1 {
		return fmt.Errorf("block_utilization must be in [0,1], got %v", s.BlockUtilization)
	}
	if s.HourOfDay < 0 || s.HourOfDay >= 24 {
		return fmt.Errorf("hour_of_day must be in [0,24), got %v", s.HourOfDay)
	}
	if s.HighPriorityTxCount < 0 {
		return fmt.Errorf("high_priority_tx_count must be non-negative, got %v", s.HighPriorityTxCount)
	}
	return nil
}

// FromVector rebuilds a snapshot from a feature vector in canonical order.
func FromVector(vector []float64) (Snapshot, error) {
	if len(vector) != FeatureCount {
		return Snapshot{}, fmt.Errorf("expected %d features, got %d", FeatureCount, len(vector))
	}
	return Snapshot{
		BaseFee:             vector[0],
		PendingTxCount:      vector[1],
		AvgGasUsedRatio:     vector[2],
		BlockUtilization:    vector[3],
		HourOfDay:           vector[4],
		HighPriorityTxCount: vector[5],
		Weekend:             vector[6] == 1,
	}, nil
}
