package gas

import "testing"

func TestSnapshotVectorOrder(t *testing.T) {
	s := Snapshot{
		BaseFee:             150,
		PendingTxCount:      500,
		AvgGasUsedRatio:     0.85,
		BlockUtilization:    0.9,
		HourOfDay:           14,
		HighPriorityTxCount: 200,
		Weekend:             false,
	}
	vector := s.Vector()
	if len(vector) != FeatureCount {
		t.Fatalf("expected %d features, got %d", FeatureCount, len(vector))
	}
	want := []float64{150, 500, 0.85, 0.9, 14, 200, 0}
	for i, v := range want {
		if vector[i] != v {
			t.Fatalf("feature %d: expected %v, got %v", i, v, vector[i])
		}
	}

	s.Weekend = true
	if s.Vector()[6] != 1 {
		t.Fatal("expected weekend flag to encode as 1")
	}
}

func TestFromVectorRoundTrip(t *testing.T) {
	s := Snapshot{
		BaseFee:             30,
		PendingTxCount:      100,
		AvgGasUsedRatio:     0.45,
		BlockUtilization:    0.4,
		HourOfDay:           3,
		HighPriorityTxCount: 20,
		Weekend:             true,
	}
	got, err := FromVector(s.Vector())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != s {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, s)
	}

	if _, err := FromVector([]float64{1, 2, 3}); err == nil {
		t.Fatal("expected error for short vector")
	}
}

func TestBasePrice(t *testing.T) {
	// Weekday business hours: all premiums apply.
	busy := Snapshot{
		BaseFee:             100,
		PendingTxCount:      1000,
		AvgGasUsedRatio:     1,
		BlockUtilization:    1,
		HourOfDay:           12,
		HighPriorityTxCount: 300,
	}
	want := 100*1.1 + 50 + 40 + 30 + 15 + 25 + 5
	if got := BasePrice(busy); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// Weekend night: discounts apply.
	quiet := busy
	quiet.HourOfDay = 3
	quiet.Weekend = true
	want = 100*1.1 + 50 + 40 + 30 - 5 + 25 - 10
	if got := BasePrice(quiet); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClampPrice(t *testing.T) {
	if got := ClampPrice(5); got != MinPrice {
		t.Fatalf("expected %v, got %v", MinPrice, got)
	}
	if got := ClampPrice(500); got != MaxPrice {
		t.Fatalf("expected %v, got %v", MaxPrice, got)
	}
	if got := ClampPrice(120); got != 120 {
		t.Fatalf("expected 120, got %v", got)
	}
}

func TestSnapshotValidate(t *testing.T) {
	valid := Snapshot{
		BaseFee:             80,
		PendingTxCount:      300,
		AvgGasUsedRatio:     0.65,
		BlockUtilization:    0.7,
		HourOfDay:           9,
		HighPriorityTxCount: 100,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := valid
	bad.BaseFee = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero base fee")
	}

	bad = valid
	bad.AvgGasUsedRatio = 1.2
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for ratio above 1")
	}

	bad = valid
	bad.HourOfDay = 24
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for hour 24")
	}
}
