package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateTrainingConfig(t *testing.T) {
	valid := TrainingConfig{
		TrainSamples: 1000,
		ValSamples:   100,
		Epochs:       100,
		BatchSize:    32,
		LearningRate: 1e-3,
		ModelPath:    "gas.model",
	}
	if err := validateTrainingConfig(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]func(*TrainingConfig){
		"too few train samples": func(c *TrainingConfig) { c.TrainSamples = 10 },
		"zero val samples":      func(c *TrainingConfig) { c.ValSamples = 0 },
		"zero epochs":           func(c *TrainingConfig) { c.Epochs = 0 },
		"zero learning rate":    func(c *TrainingConfig) { c.LearningRate = 0 },
		"empty model path":      func(c *TrainingConfig) { c.ModelPath = "" },
	}
	for name, mutate := range cases {
		cfg := valid
		mutate(&cfg)
		if err := validateTrainingConfig(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestHandleTrainRejectsBadConfig(t *testing.T) {
	mux := http.NewServeMux()
	RegisterTrainingHandlers(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/train", strings.NewReader(`{"epochs":0}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleTrainConflictsWhileRunning(t *testing.T) {
	mux := http.NewServeMux()
	RegisterTrainingHandlers(mux)

	trainingActive.Store(true)
	defer trainingActive.Store(false)

	req := httptest.NewRequest(http.MethodPost, "/api/train", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}
