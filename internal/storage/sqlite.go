// Package storage keeps an append-only SQLite journal of scraping runs:
// what was started, which products were extracted and which links failed.
// Nothing in it is read back to resume a run.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/masahif/shoptadoru/internal/model"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Run statuses
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// ErrRunNotFound is returned by GetRun for an unknown ID
var ErrRunNotFound = errors.New("run not found")

// Run is one journaled invocation
type Run struct {
	ID           string
	SeedURL      string
	OutputPath   string
	TemplatePath string
	Status       string
	ProductCount int
	FailureCount int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// ProductRecord is a journaled product with the strategy that produced it
type ProductRecord struct {
	model.Product
	Strategy    string
	ExtractedAt time.Time
}

// SQLiteJournal implements the run journal on SQLite
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (creating if needed) the journal at dbPath
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	journal := &SQLiteJournal{db: db}
	if err := journal.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return journal, nil
}

// InitSchema creates the database schema
func (s *SQLiteJournal) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}

// StartRun records a new run in the running state
func (s *SQLiteJournal) StartRun(id, seedURL, outputPath, templatePath string) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, seed_url, output_path, template_path, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, seedURL, outputPath, nullString(templatePath), StatusRunning, time.Now())
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", id, err)
	}
	return nil
}

// SaveProduct appends an extracted product to a run
func (s *SQLiteJournal) SaveProduct(runID string, product model.Product, strategy string) error {
	_, err := s.db.Exec(`
		INSERT INTO products (run_id, url, name, price, image_url, description, strategy, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		product.URL,
		nullString(product.Name),
		nullString(product.Price),
		nullString(product.ImageURL),
		nullString(product.Description),
		nullString(strategy),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", product.URL, err)
	}
	return nil
}

// SaveFailure appends a link failure to a run
func (s *SQLiteJournal) SaveFailure(runID, url, errorType, errorMessage string) error {
	_, err := s.db.Exec(`
		INSERT INTO link_failures (run_id, url, error_type, error_message, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, runID, url, errorType, nullString(errorMessage), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save failure for %s: %w", url, err)
	}
	return nil
}

// FinishRun closes a run with its final status and counters
func (s *SQLiteJournal) FinishRun(id, status string, productCount, failureCount int, errorMessage string) error {
	result, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, product_count = ?, failure_count = ?, error_message = ?, finished_at = ?
		WHERE id = ?
	`, status, productCount, failureCount, nullString(errorMessage), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// GetRun loads a run by ID
func (s *SQLiteJournal) GetRun(id string) (*Run, error) {
	var run Run
	var templatePath, errorMessage sql.NullString
	var finishedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT id, seed_url, output_path, template_path, status, product_count,
		       failure_count, error_message, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.SeedURL,
		&run.OutputPath,
		&templatePath,
		&run.Status,
		&run.ProductCount,
		&run.FailureCount,
		&errorMessage,
		&run.StartedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	run.TemplatePath = templatePath.String
	run.ErrorMessage = errorMessage.String
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return &run, nil
}

// ListProducts returns a run's products in extraction order
func (s *SQLiteJournal) ListProducts(runID string) ([]ProductRecord, error) {
	rows, err := s.db.Query(`
		SELECT url, name, price, image_url, description, strategy, extracted_at
		FROM products WHERE run_id = ? ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []ProductRecord
	for rows.Next() {
		var record ProductRecord
		var name, price, imageURL, description, strategy sql.NullString
		if err := rows.Scan(&record.URL, &name, &price, &imageURL, &description, &strategy, &record.ExtractedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		record.Name = name.String
		record.Price = price.String
		record.ImageURL = imageURL.String
		record.Description = description.String
		record.Strategy = strategy.String
		records = append(records, record)
	}

	return records, rows.Err()
}

// CountFailures returns the number of link failures journaled for a run
func (s *SQLiteJournal) CountFailures(runID string) (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM link_failures WHERE run_id = ?", runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}

// nullString stores empty strings as NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
