package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"gasoracle/gas"
	"gasoracle/ml"
)

func main() {
	trainSamples := flag.Int("train_samples", 10000, "number of training samples")
	valSamples := flag.Int("val_samples", 1000, "number of validation samples")
	epochs := flag.Int("epochs", 100, "number of epochs")
	batchSize := flag.Int("batch_size", 32, "batch size")
	learningRate := flag.Float64("lr", 1e-3, "learning rate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	modelPath := flag.String("model_path", "./models/gas.model", "model output path")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	synth := ml.NewSynthesizer(*seed)
	trainSet, err := synth.Generate(*trainSamples)
	if err != nil {
		sugar.Fatalf("failed to generate training data: %v", err)
	}
	valSet, err := synth.Generate(*valSamples)
	if err != nil {
		sugar.Fatalf("failed to generate validation data: %v", err)
	}
	sugar.Infow("generated synthetic gas price data",
		"train_samples", trainSet.Len(),
		"val_samples", valSet.Len(),
		"features", gas.FeatureCount,
	)

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		sugar.Fatalf("failed to create model dir: %v", err)
	}

	cfg := ml.DefaultTrainerConfig()
	cfg.Epochs = *epochs
	cfg.BatchSize = *batchSize
	cfg.LearningRate = *learningRate

	model, err := ml.Train(cfg, trainSet, valSet, ml.CPU, *modelPath)
	if err != nil {
		sugar.Fatalf("training failed: %v", err)
	}

	runDemo(ml.PredictorFromModel(model))
	fmt.Printf("model saved to %s\n", *modelPath)
}

// runDemo prints predictions for a few representative market conditions.
func runDemo(predictor *ml.Predictor) {
	examples := []gas.Snapshot{
		// Weekday afternoon, heavy load
		{BaseFee: 150, PendingTxCount: 500, AvgGasUsedRatio: 0.85, BlockUtilization: 0.90, HourOfDay: 14, HighPriorityTxCount: 200},
		// Weekend early morning, quiet
		{BaseFee: 30, PendingTxCount: 100, AvgGasUsedRatio: 0.45, BlockUtilization: 0.40, HourOfDay: 3, HighPriorityTxCount: 20, Weekend: true},
		// Weekday morning, moderate load
		{BaseFee: 80, PendingTxCount: 300, AvgGasUsedRatio: 0.65, BlockUtilization: 0.70, HourOfDay: 9, HighPriorityTxCount: 100},
	}

	for i, example := range examples {
		price, err := predictor.Predict(example.Vector())
		if err != nil {
			zap.S().Warnw("prediction failed", "example", i+1, "error", err)
			continue
		}

		weekend := "No"
		if example.Weekend {
			weekend = "Yes"
		}
		fmt.Printf("Example %d:\n", i+1)
		fmt.Printf("  Base Fee: %.0f gwei\n", example.BaseFee)
		fmt.Printf("  Pending Transactions: %.0f\n", example.PendingTxCount)
		fmt.Printf("  Avg Gas Used (last 5 blocks): %.1f%%\n", example.AvgGasUsedRatio*100)
		fmt.Printf("  Block Utilization: %.1f%%\n", example.BlockUtilization*100)
		fmt.Printf("  Hour (UTC): %.0f\n", example.HourOfDay)
		fmt.Printf("  High Priority TXs: %.0f\n", example.HighPriorityTxCount)
		fmt.Printf("  Weekend: %s\n", weekend)
		fmt.Printf("  -> Predicted Gas Price: %.2f gwei\n\n", price)
	}
}
