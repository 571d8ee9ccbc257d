package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"gasoracle/db"
	qhttp "gasoracle/http"
	"gasoracle/logging"
	"gasoracle/ml"
	"gasoracle/monitoring"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log logging.Config `yaml:"log"`
	ML  struct {
		ModelPath    string  `yaml:"model_path"`
		CacheSize    int     `yaml:"cache_size"`
		TrainSamples int     `yaml:"train_samples"`
		ValSamples   int     `yaml:"val_samples"`
		Epochs       int     `yaml:"epochs"`
		BatchSize    int     `yaml:"batch_size"`
		LearningRate float64 `yaml:"learning_rate"`
	} `yaml:"ml"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		zap.S().Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	logger, err := logging.Init(config.Log)
	if err != nil {
		zap.S().Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	// 3. Initialize database
	if err := db.InitDB(config.Database.Path); err != nil {
		zap.S().Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	zap.S().Infow("database initialized", "path", config.Database.Path)

	// 4. Progress hub + model serving path
	hub := monitoring.NewHub()
	go hub.Start()

	cache, err := ml.NewModelCache(config.ML.CacheSize, ml.CPU)
	if err != nil {
		zap.S().Fatalf("Failed to create model cache: %v", err)
	}
	qhttp.SetModelProvider(ml.NewCachedPredictor(cache, config.ML.ModelPath))
	qhttp.SetArtifactPath(config.ML.ModelPath)
	qhttp.SetTrainingHub(hub)
	qhttp.SetTrainingDefaults(qhttp.TrainingConfig{
		TrainSamples: config.ML.TrainSamples,
		ValSamples:   config.ML.ValSamples,
		Epochs:       config.ML.Epochs,
		BatchSize:    config.ML.BatchSize,
		LearningRate: config.ML.LearningRate,
		ModelPath:    config.ML.ModelPath,
	})

	// Reload the served model when a training run rewrites the artifact
	watcher, err := ml.NewArtifactWatcher(cache, config.ML.ModelPath)
	if err != nil {
		zap.S().Warnw("artifact watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	// 5. Start HTTP server
	serverCfg := qhttp.DefaultServerConfig()
	serverCfg.Port = config.Http.Port
	if config.Http.TimeoutSeconds > 0 {
		serverCfg.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverCfg.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := qhttp.NewServer(serverCfg, hub)
	go func() {
		if err := server.Start(); err != nil {
			zap.S().Fatalf("HTTP server failed: %v", err)
		}
	}()

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down")

	if err := server.Stop(); err != nil {
		zap.S().Warnw("server forced to shutdown", "error", err)
	}
	hub.Stop()

	zap.S().Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
