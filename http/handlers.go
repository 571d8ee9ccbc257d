package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"gasoracle/db"
	"gasoracle/gas"
	"gasoracle/ml"
)

// ModelProvider serves point predictions for a feature vector.
type ModelProvider interface {
	Predict(features []float64) (float64, error)
}

var (
	modelProvider ModelProvider
	artifactPath  string

	// Overridable in tests.
	savePrediction    = db.SavePrediction
	queryTrainingRuns = db.QueryTrainingRuns
)

// SetModelProvider injects the predictor used by the predict endpoint.
func SetModelProvider(provider ModelProvider) {
	modelProvider = provider
}

// SetArtifactPath records the artifact the served model is loaded from.
func SetArtifactPath(path string) {
	artifactPath = path
}

// RegisterHandlers 注册预测相关处理器
func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/predict", handlePredict)
	mux.HandleFunc("GET /api/model", handleModelInfo)
	mux.HandleFunc("GET /api/training/history", handleTrainingHistory)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if modelProvider == nil {
		http.Error(w, `{"error":"no model loaded"}`, http.StatusServiceUnavailable)
		return
	}

	var snapshot gas.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := snapshot.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	price, err := modelProvider.Predict(snapshot.Vector())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	price = gas.ClampPrice(price)

	if err := savePrediction(snapshot, price); err != nil {
		// Logging the prediction is best effort.
		zap.S().Warnw("failed to store prediction", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(gas.Prediction{
		Snapshot:       snapshot,
		PredictedPrice: price,
	})
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"architecture":  []int{ml.InputSize, ml.HiddenSize, ml.OutputSize},
		"features":      gas.FeatureNames(),
		"artifact_path": artifactPath,
		"loaded":        modelProvider != nil,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleTrainingHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	runs, err := queryTrainingRuns(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runs": runs,
	})
}
