package ml

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// ProgressEvent is reported to the trainer's progress callback on every
// validation epoch and once more on completion.
type ProgressEvent struct {
	Epoch     int     `json:"epoch"`
	Epochs    int     `json:"epochs"`
	TrainLoss float64 `json:"train_loss"`
	ValLoss   float64 `json:"val_loss"`
	Overfit   bool    `json:"overfit"`
	Done      bool    `json:"done"`
}

// ProgressFunc observes training progress. It must not mutate the model.
type ProgressFunc func(ProgressEvent)

// TrainerConfig controls a single self-contained training run.
type TrainerConfig struct {
	Epochs        int
	BatchSize     int
	LearningRate  float64
	ValidateEvery int
	OverfitRatio  float64
	Progress      ProgressFunc

	// Test hook, invoked after each optimizer step.
	onBatch func(epoch, batch int)
}

// DefaultTrainerConfig returns the standard run settings.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Epochs:        100,
		BatchSize:     32,
		LearningRate:  1e-3,
		ValidateEvery: 10,
		OverfitRatio:  1.5,
	}
}

// Train runs a full training pass over trainSet, validating against valSet on
// the configured cadence, and persists the final parameters to artifactPath.
// Each call is a fresh run: there is no checkpointing or resume.
func Train(cfg TrainerConfig, trainSet, valSet *Dataset, device Device, artifactPath string) (*GasPriceNet, error) {
	if err := validateTrainerConfig(cfg, trainSet, valSet); err != nil {
		return nil, err
	}

	model := NewGasPriceNet(device)
	opt := NewAdam(model.Parameters(), cfg.LearningRate)

	// Contiguous batches in fixed dataset order; the tail partial batch is
	// dropped and those samples are never trained on within an epoch.
	nBatches := trainSet.Len() / cfg.BatchSize

	logger := zap.S()
	logger.Infow("training started",
		"train_samples", trainSet.Len(),
		"val_samples", valSet.Len(),
		"epochs", cfg.Epochs,
		"batch_size", cfg.BatchSize,
		"batches_per_epoch", nBatches,
		"learning_rate", cfg.LearningRate,
		"device", device.String(),
	)

	finalTrainLoss := 0.0
	lastValLoss := 0.0
	validatedFinalEpoch := false

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		epochLoss := 0.0

		for batch := 0; batch < nBatches; batch++ {
			start := batch * cfg.BatchSize
			end := start + cfg.BatchSize
			batchFeatures := trainSet.Features.Slice(start, end, 0, InputSize).(*mat.Dense)
			batchLabels := trainSet.Labels[start:end]

			preds := model.Forward(batchFeatures)
			loss, dOut := mseLoss(preds, batchLabels)
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return nil, fmt.Errorf("non-finite loss %v at epoch %d batch %d", loss, epoch, batch)
			}

			model.ZeroGrad()
			model.Backward(dOut)
			opt.Step()
			epochLoss += loss

			if cfg.onBatch != nil {
				cfg.onBatch(epoch, batch)
			}
		}

		epochLoss /= float64(nBatches)

		finalTrainLoss = epochLoss

		if epoch%cfg.ValidateEvery == 0 {
			valLoss := evaluate(model, valSet)
			lastValLoss = valLoss
			validatedFinalEpoch = epoch == cfg.Epochs
			overfit := valLoss > cfg.OverfitRatio*epochLoss
			logger.Infow("validation",
				"epoch", epoch,
				"epochs", cfg.Epochs,
				"train_loss", epochLoss,
				"val_loss", valLoss,
			)
			if overfit {
				// Advisory only: training continues unchanged.
				logger.Warnw("possible overfitting detected",
					"epoch", epoch,
					"train_loss", epochLoss,
					"val_loss", valLoss,
				)
			}
			if cfg.Progress != nil {
				cfg.Progress(ProgressEvent{
					Epoch:     epoch,
					Epochs:    cfg.Epochs,
					TrainLoss: epochLoss,
					ValLoss:   valLoss,
					Overfit:   overfit,
				})
			}
		}
	}

	if err := SaveModel(model, artifactPath); err != nil {
		return nil, err
	}
	logger.Infow("model saved", "path", artifactPath)

	// Completion is only reported once the artifact is on disk, so observers
	// never see a finished run whose persistence failed.
	if cfg.Progress != nil {
		if !validatedFinalEpoch {
			lastValLoss = evaluate(model, valSet)
		}
		cfg.Progress(ProgressEvent{
			Epoch:     cfg.Epochs,
			Epochs:    cfg.Epochs,
			TrainLoss: finalTrainLoss,
			ValLoss:   lastValLoss,
			Done:      true,
		})
	}

	return model, nil
}

// evaluate computes the MSE of the model over a whole dataset without
// gradient bookkeeping.
func evaluate(model *GasPriceNet, set *Dataset) float64 {
	preds := model.ForwardEval(set.Features)
	loss, _ := mseLoss(preds, set.Labels)
	return loss
}

// mseLoss returns the mean squared error between predictions [B,1] and
// labels [B], and the loss gradient with respect to the predictions.
func mseLoss(preds *mat.Dense, labels []float64) (float64, *mat.Dense) {
	n := len(labels)
	grad := mat.NewDense(n, 1, nil)
	sum := 0.0
	for i := 0; i < n; i++ {
		diff := preds.At(i, 0) - labels[i]
		sum += diff * diff
		grad.Set(i, 0, 2*diff/float64(n))
	}
	return sum / float64(n), grad
}

func validateTrainerConfig(cfg TrainerConfig, trainSet, valSet *Dataset) error {
	if cfg.Epochs <= 0 || cfg.BatchSize <= 0 {
		return fmt.Errorf("%w: epochs and batch size must be positive", ErrInvalidConfig)
	}
	if cfg.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate must be positive", ErrInvalidConfig)
	}
	if cfg.ValidateEvery <= 0 {
		return fmt.Errorf("%w: validation cadence must be positive", ErrInvalidConfig)
	}
	if trainSet == nil || valSet == nil {
		return fmt.Errorf("%w: training and validation sets are required", ErrInvalidConfig)
	}
	if trainSet.Len() < cfg.BatchSize {
		return fmt.Errorf("%w: need at least one full batch, have %d samples with batch size %d",
			ErrInvalidConfig, trainSet.Len(), cfg.BatchSize)
	}
	if valSet.Len() == 0 {
		return fmt.Errorf("%w: validation set is empty", ErrInvalidConfig)
	}
	return nil
}
