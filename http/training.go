package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"gasoracle/db"
	"gasoracle/ml"
	"gasoracle/monitoring"
)

// TrainingConfig configures one training run started over the API.
type TrainingConfig struct {
	TrainSamples int     `json:"train_samples"`
	ValSamples   int     `json:"val_samples"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Seed         int64   `json:"seed"`
	ModelPath    string  `json:"model_path"`
}

var (
	trainingDefaults = TrainingConfig{
		TrainSamples: 10000,
		ValSamples:   1000,
		Epochs:       100,
		BatchSize:    32,
		LearningRate: 1e-3,
		ModelPath:    "gas.model",
	}
	trainingHub    *monitoring.Hub
	trainingActive atomic.Bool
)

// SetTrainingDefaults installs the config used when a request omits fields.
func SetTrainingDefaults(cfg TrainingConfig) {
	trainingDefaults = cfg
}

// SetTrainingHub wires training runs to the progress broadcast hub.
func SetTrainingHub(hub *monitoring.Hub) {
	trainingHub = hub
}

// RegisterTrainingHandlers 注册训练相关处理器
func RegisterTrainingHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/train", handleTrain)
}

func handleTrain(w http.ResponseWriter, r *http.Request) {
	cfg := trainingDefaults
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := validateTrainingConfig(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !trainingActive.CompareAndSwap(false, true) {
		http.Error(w, `{"error":"a training run is already in progress"}`, http.StatusConflict)
		return
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	go runTrainingJob(cfg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "training started",
		"config": cfg,
	})
}

func validateTrainingConfig(cfg TrainingConfig) error {
	if cfg.TrainSamples < cfg.BatchSize || cfg.BatchSize <= 0 {
		return errors.New("train_samples must cover at least one full batch")
	}
	if cfg.ValSamples <= 0 {
		return errors.New("val_samples must be positive")
	}
	if cfg.Epochs <= 0 {
		return errors.New("epochs must be positive")
	}
	if cfg.LearningRate <= 0 {
		return errors.New("learning_rate must be positive")
	}
	if cfg.ModelPath == "" {
		return errors.New("model_path is required")
	}
	return nil
}

func runTrainingJob(cfg TrainingConfig) {
	defer trainingActive.Store(false)
	logger := zap.S()

	runID, err := db.InsertTrainingRun(db.TrainingRun{
		StartedAt:    time.Now().UTC(),
		TrainSamples: cfg.TrainSamples,
		ValSamples:   cfg.ValSamples,
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
		ModelPath:    cfg.ModelPath,
	})
	if err != nil {
		// The run still proceeds; only its history is lost.
		logger.Warnw("failed to record training run", "error", err)
	}
	if trainingHub != nil {
		trainingHub.BroadcastEvent(monitoring.TrainingStarted, cfg)
	}

	synth := ml.NewSynthesizer(cfg.Seed)
	trainSet, err := synth.Generate(cfg.TrainSamples)
	if err != nil {
		failTrainingJob(runID, err)
		return
	}
	valSet, err := synth.Generate(cfg.ValSamples)
	if err != nil {
		failTrainingJob(runID, err)
		return
	}

	var lastEvent ml.ProgressEvent
	trainerCfg := ml.TrainerConfig{
		Epochs:        cfg.Epochs,
		BatchSize:     cfg.BatchSize,
		LearningRate:  cfg.LearningRate,
		ValidateEvery: 10,
		OverfitRatio:  1.5,
		Progress: func(ev ml.ProgressEvent) {
			lastEvent = ev
			if runID != 0 && !ev.Done {
				if err := db.SaveEpochMetric(runID, ev); err != nil {
					logger.Warnw("failed to record epoch metric", "epoch", ev.Epoch, "error", err)
				}
			}
			if trainingHub != nil {
				trainingHub.BroadcastProgress(ev)
			}
		},
	}

	if _, err := ml.Train(trainerCfg, trainSet, valSet, ml.CPU, cfg.ModelPath); err != nil {
		failTrainingJob(runID, err)
		return
	}

	if runID != 0 {
		if err := db.FinishTrainingRun(runID, db.RunStatusFinished, &lastEvent.TrainLoss, &lastEvent.ValLoss); err != nil {
			logger.Warnw("failed to finalize training run", "error", err)
		}
	}
	logger.Infow("training run finished",
		"run_id", runID,
		"train_loss", lastEvent.TrainLoss,
		"val_loss", lastEvent.ValLoss,
		"model_path", cfg.ModelPath,
	)
}

func failTrainingJob(runID int64, cause error) {
	zap.S().Errorw("training run failed", "run_id", runID, "error", cause)
	if runID != 0 {
		if err := db.FinishTrainingRun(runID, db.RunStatusFailed, nil, nil); err != nil {
			zap.S().Warnw("failed to finalize training run", "error", err)
		}
	}
	if trainingHub != nil {
		trainingHub.BroadcastEvent(monitoring.TrainingFailed, map[string]string{"error": cause.Error()})
	}
}
