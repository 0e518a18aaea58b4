// Package registry persists training-run metadata so an operator can inspect
// past model refreshes: held-out AUC, best boosting iteration, and row
// counts per run.
package registry

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/retailpulse/churnrisk/pkg/models"
)

// Registry provides SQLite-based persistence for training runs
type Registry struct {
	db *sql.DB
}

// NewRegistry opens (or creates) the registry database at dbPath.
func NewRegistry(dbPath string) (*Registry, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized by SQLite anyway; keep the pool small.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	r := &Registry{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return r, nil
}

// Close closes the database connection
func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		run_id TEXT PRIMARY KEY,
		auc REAL NOT NULL,
		best_iteration INTEGER NOT NULL,
		rounds INTEGER NOT NULL,
		train_rows INTEGER NOT NULL,
		test_rows INTEGER NOT NULL,
		train_positives INTEGER NOT NULL,
		test_positives INTEGER NOT NULL,
		feature_count INTEGER NOT NULL,
		trained_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_training_runs_trained_at ON training_runs(trained_at);
	`
	_, err := r.db.Exec(schema)
	return err
}

// RecordRun stores the metrics of one training run.
func (r *Registry) RecordRun(m *models.TrainingMetrics) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO training_runs
		(run_id, auc, best_iteration, rounds, train_rows, test_rows, train_positives, test_positives, feature_count, trained_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.AUC, m.BestIteration, m.Rounds, m.TrainRows, m.TestRows,
		m.TrainPositives, m.TestPositives, m.FeatureCount, m.TrainedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record training run: %w", err)
	}
	return nil
}

// LatestRun returns the most recent training run, or nil when none exist.
func (r *Registry) LatestRun() (*models.TrainingMetrics, error) {
	runs, err := r.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// ListRuns returns up to limit training runs, newest first.
func (r *Registry) ListRuns(limit int) ([]*models.TrainingMetrics, error) {
	rows, err := r.db.Query(`
		SELECT run_id, auc, best_iteration, rounds, train_rows, test_rows, train_positives, test_positives, feature_count, trained_at
		FROM training_runs ORDER BY trained_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.TrainingMetrics
	for rows.Next() {
		var m models.TrainingMetrics
		if err := rows.Scan(&m.RunID, &m.AUC, &m.BestIteration, &m.Rounds, &m.TrainRows,
			&m.TestRows, &m.TrainPositives, &m.TestPositives, &m.FeatureCount, &m.TrainedAt); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		runs = append(runs, &m)
	}
	return runs, rows.Err()
}
