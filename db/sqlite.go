package db

import (
	"database/sql"
	"errors"
	"time"

	"gasoracle/gas"
	"gasoracle/ml"
	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        started_at DATETIME NOT NULL,
        finished_at DATETIME,
        status TEXT NOT NULL,
        train_samples INTEGER NOT NULL,
        val_samples INTEGER NOT NULL,
        epochs INTEGER NOT NULL,
        batch_size INTEGER NOT NULL,
        learning_rate REAL NOT NULL,
        seed INTEGER NOT NULL,
        final_train_loss REAL,
        final_val_loss REAL,
        model_path TEXT NOT NULL
    );
    CREATE TABLE IF NOT EXISTS epoch_metrics (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id INTEGER NOT NULL,
        epoch INTEGER NOT NULL,
        train_loss REAL NOT NULL,
        val_loss REAL NOT NULL,
        overfit INTEGER DEFAULT 0,
        recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE(run_id, epoch)
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        base_fee REAL NOT NULL,
        pending_tx_count REAL NOT NULL,
        avg_gas_used_ratio REAL NOT NULL,
        block_utilization REAL NOT NULL,
        hour_of_day REAL NOT NULL,
        high_priority_tx_count REAL NOT NULL,
        is_weekend INTEGER NOT NULL,
        predicted_price REAL NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `

	_, err = database.Exec(query)
	return err
}

// Close closes the database handle
func Close() error {
	if database == nil {
		return nil
	}
	return database.Close()
}

// TrainingRun describes one persisted training run
type TrainingRun struct {
	ID             int64      `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Status         string     `json:"status"`
	TrainSamples   int        `json:"train_samples"`
	ValSamples     int        `json:"val_samples"`
	Epochs         int        `json:"epochs"`
	BatchSize      int        `json:"batch_size"`
	LearningRate   float64    `json:"learning_rate"`
	Seed           int64      `json:"seed"`
	FinalTrainLoss *float64   `json:"final_train_loss,omitempty"`
	FinalValLoss   *float64   `json:"final_val_loss,omitempty"`
	ModelPath      string     `json:"model_path"`
}

// Run statuses
const (
	RunStatusRunning  = "running"
	RunStatusFinished = "finished"
	RunStatusFailed   = "failed"
)

// InsertTrainingRun records the start of a run and returns its id
func InsertTrainingRun(run TrainingRun) (int64, error) {
	if database == nil {
		return 0, errors.New("database not initialized")
	}
	result, err := database.Exec(`
        INSERT INTO training_runs (
            started_at, status, train_samples, val_samples,
            epochs, batch_size, learning_rate, seed, model_path
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt, RunStatusRunning, run.TrainSamples, run.ValSamples,
		run.Epochs, run.BatchSize, run.LearningRate, run.Seed, run.ModelPath)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// FinishTrainingRun marks a run finished or failed with its final losses
func FinishTrainingRun(id int64, status string, trainLoss, valLoss *float64) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        UPDATE training_runs
        SET finished_at = ?, status = ?, final_train_loss = ?, final_val_loss = ?
        WHERE id = ?`,
		time.Now().UTC(), status, trainLoss, valLoss, id)
	return err
}

// SaveEpochMetric records one validation-epoch report for a run
func SaveEpochMetric(runID int64, ev ml.ProgressEvent) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	overfit := 0
	if ev.Overfit {
		overfit = 1
	}
	_, err := database.Exec(`
        INSERT OR REPLACE INTO epoch_metrics (run_id, epoch, train_loss, val_loss, overfit)
        VALUES (?, ?, ?, ?, ?)`,
		runID, ev.Epoch, ev.TrainLoss, ev.ValLoss, overfit)
	return err
}

// QueryTrainingRuns returns the most recent runs
func QueryTrainingRuns(limit int) ([]TrainingRun, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT id, started_at, finished_at, status, train_samples, val_samples,
               epochs, batch_size, learning_rate, seed,
               final_train_loss, final_val_loss, model_path
        FROM training_runs
        ORDER BY started_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		var run TrainingRun
		var finishedAt sql.NullTime
		var trainLoss, valLoss sql.NullFloat64
		err := rows.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status,
			&run.TrainSamples, &run.ValSamples, &run.Epochs, &run.BatchSize,
			&run.LearningRate, &run.Seed, &trainLoss, &valLoss, &run.ModelPath)
		if err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		if trainLoss.Valid {
			v := trainLoss.Float64
			run.FinalTrainLoss = &v
		}
		if valLoss.Valid {
			v := valLoss.Float64
			run.FinalValLoss = &v
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// QueryEpochMetrics returns the validation reports for a run in epoch order
func QueryEpochMetrics(runID int64) ([]ml.ProgressEvent, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT epoch, train_loss, val_loss, overfit
        FROM epoch_metrics
        WHERE run_id = ?
        ORDER BY epoch ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ml.ProgressEvent
	for rows.Next() {
		var ev ml.ProgressEvent
		var overfit int
		if err := rows.Scan(&ev.Epoch, &ev.TrainLoss, &ev.ValLoss, &overfit); err != nil {
			return nil, err
		}
		ev.Overfit = overfit == 1
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SavePrediction logs a served prediction with its input snapshot
func SavePrediction(snapshot gas.Snapshot, price float64) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	weekend := 0
	if snapshot.Weekend {
		weekend = 1
	}
	_, err := database.Exec(`
        INSERT INTO predictions (
            base_fee, pending_tx_count, avg_gas_used_ratio, block_utilization,
            hour_of_day, high_priority_tx_count, is_weekend, predicted_price
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.BaseFee, snapshot.PendingTxCount, snapshot.AvgGasUsedRatio,
		snapshot.BlockUtilization, snapshot.HourOfDay, snapshot.HighPriorityTxCount,
		weekend, price)
	return err
}
