package db

import (
	"path/filepath"
	"testing"
	"time"

	"gasoracle/gas"
	"gasoracle/ml"
)

func setupDB(t *testing.T) {
	t.Helper()
	if err := InitDB(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestTrainingRunLifecycle(t *testing.T) {
	setupDB(t)

	runID, err := InsertTrainingRun(TrainingRun{
		StartedAt:    time.Now().UTC(),
		TrainSamples: 10000,
		ValSamples:   1000,
		Epochs:       100,
		BatchSize:    32,
		LearningRate: 1e-3,
		Seed:         42,
		ModelPath:    "models/gas.model",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID == 0 {
		t.Fatal("expected nonzero run id")
	}

	for epoch := 10; epoch <= 30; epoch += 10 {
		ev := ml.ProgressEvent{Epoch: epoch, TrainLoss: 100 / float64(epoch), ValLoss: 120 / float64(epoch)}
		if err := SaveEpochMetric(runID, ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	trainLoss := 3.2
	valLoss := 4.1
	if err := FinishTrainingRun(runID, RunStatusFinished, &trainLoss, &valLoss); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runs, err := QueryTrainingRuns(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != RunStatusFinished {
		t.Fatalf("expected finished status, got %s", run.Status)
	}
	if run.FinalTrainLoss == nil || *run.FinalTrainLoss != trainLoss {
		t.Fatalf("unexpected final train loss: %v", run.FinalTrainLoss)
	}
	if run.FinishedAt == nil {
		t.Fatal("expected finished_at to be set")
	}

	metrics, err := QueryEpochMetrics(runID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 3 {
		t.Fatalf("expected 3 epoch metrics, got %d", len(metrics))
	}
	if metrics[0].Epoch != 10 || metrics[2].Epoch != 30 {
		t.Fatalf("expected metrics in epoch order, got %+v", metrics)
	}
}

func TestSavePrediction(t *testing.T) {
	setupDB(t)

	snapshot := gas.Snapshot{
		BaseFee:             80,
		PendingTxCount:      300,
		AvgGasUsedRatio:     0.65,
		BlockUtilization:    0.7,
		HourOfDay:           9,
		HighPriorityTxCount: 100,
		Weekend:             true,
	}
	if err := SavePrediction(snapshot, 132.4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUninitializedDatabase(t *testing.T) {
	Close()
	database = nil

	if _, err := InsertTrainingRun(TrainingRun{}); err == nil {
		t.Fatal("expected error without initialized database")
	}
	if err := SavePrediction(gas.Snapshot{}, 0); err == nil {
		t.Fatal("expected error without initialized database")
	}
}
