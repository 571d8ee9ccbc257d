package ml

import (
	"errors"
	"testing"

	"gasoracle/gas"
)

func TestGenerateShapeAndRanges(t *testing.T) {
	set, err := NewSynthesizer(42).Generate(500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, cols := set.Features.Dims()
	if rows != 500 || cols != gas.FeatureCount {
		t.Fatalf("expected [500,%d] features, got [%d,%d]", gas.FeatureCount, rows, cols)
	}
	if len(set.Labels) != 500 {
		t.Fatalf("expected 500 labels, got %d", len(set.Labels))
	}

	for i := 0; i < rows; i++ {
		row := set.Features.RawRowView(i)
		if row[0] < 20 || row[0] >= 200 {
			t.Fatalf("sample %d: base_fee out of range: %v", i, row[0])
		}
		if row[1] < 50 || row[1] >= 1000 {
			t.Fatalf("sample %d: pending_tx_count out of range: %v", i, row[1])
		}
		if row[2] < 0.3 || row[2] >= 0.95 {
			t.Fatalf("sample %d: avg_gas_used_ratio out of range: %v", i, row[2])
		}
		if row[3] < 0.2 || row[3] >= 1.0 {
			t.Fatalf("sample %d: block_utilization out of range: %v", i, row[3])
		}
		if row[4] < 0 || row[4] >= 24 {
			t.Fatalf("sample %d: hour_of_day out of range: %v", i, row[4])
		}
		if row[5] < 0 || row[5] >= 300 {
			t.Fatalf("sample %d: high_priority_tx_count out of range: %v", i, row[5])
		}
		if row[6] != 0 && row[6] != 1 {
			t.Fatalf("sample %d: weekend flag must be 0 or 1: %v", i, row[6])
		}
		if set.Labels[i] < gas.MinPrice || set.Labels[i] > gas.MaxPrice {
			t.Fatalf("sample %d: label out of range: %v", i, set.Labels[i])
		}
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	first, err := NewSynthesizer(7).Generate(50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NewSynthesizer(7).Generate(50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first.Labels {
		if first.Labels[i] != second.Labels[i] {
			t.Fatalf("label %d differs across identical seeds", i)
		}
		for j := 0; j < gas.FeatureCount; j++ {
			if first.Features.At(i, j) != second.Features.At(i, j) {
				t.Fatalf("feature [%d,%d] differs across identical seeds", i, j)
			}
		}
	}
}

func TestGenerateRejectsNonPositiveCount(t *testing.T) {
	s := NewSynthesizer(1)
	for _, n := range []int{0, -5} {
		if _, err := s.Generate(n); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected configuration error for n=%d, got %v", n, err)
		}
	}
}
