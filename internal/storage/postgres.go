/**
 * PostgreSQL Client for the text extraction worker
 *
 * Persists one row per extraction job with the unified OCR result as JSONB.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Schema creates the job table. It is idempotent.
const Schema = `
CREATE SCHEMA IF NOT EXISTS textextract;

CREATE TABLE IF NOT EXISTS textextract.ocr_jobs (
	id                 UUID PRIMARY KEY,
	source             TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	platform           TEXT,
	confidence         NUMERIC(5,4),
	processing_time_ms BIGINT,
	block_count        INTEGER,
	languages          TEXT[],
	error_code         TEXT,
	error_message      TEXT,
	attempts           INTEGER NOT NULL DEFAULT 0,
	result             JSONB,
	metadata           JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS ocr_jobs_status_idx ON textextract.ocr_jobs (status);
`

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Source           string
	Status           string
	Platform         string
	Confidence       float64
	ProcessingTimeMs int64
	BlockCount       int
	Languages        []string
	ErrorCode        string
	ErrorMessage     string
	Attempts         int
	Result           json.RawMessage
	Metadata         map[string]interface{}
}

// JobRecord is a stored job row.
type JobRecord struct {
	JobID            string
	Source           string
	Status           string
	Platform         string
	Confidence       float64
	ProcessingTimeMs int64
	BlockCount       int
	Languages        []string
	ErrorCode        string
	ErrorMessage     string
	Attempts         int
	Result           json.RawMessage
	Metadata         map[string]interface{}
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// sanitizeConfidence rounds confidence to 4 decimal places and clamps it to
// [0.0, 1.0] so it always fits NUMERIC(5,4).
func sanitizeConfidence(confidence float64) float64 {
	if confidence != confidence || confidence < 0.0 {
		return 0.0
	}
	if confidence > 1.0 {
		return 1.0
	}
	return float64(int(confidence*10000+0.5)) / 10000
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	// Connect to database
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// EnsureSchema creates the schema and table when missing.
func (p *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// UpdateJobStatus upserts the job row. Empty fields of a later update keep
// the stored values.
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if err := validateUpdate(update); err != nil {
		return err
	}

	metadata := update.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	// JSON goes over the wire as text; lib/pq would hex-encode []byte as bytea.
	var resultJSON sql.NullString
	if len(update.Result) > 0 {
		resultJSON = sql.NullString{String: string(update.Result), Valid: true}
	}

	query := `
		INSERT INTO textextract.ocr_jobs (
			id, source, status, platform, confidence, processing_time_ms,
			block_count, languages, error_code, error_message, attempts,
			result, metadata, created_at, updated_at
		) VALUES (
			$1::uuid, $2, $3, NULLIF($4, ''), NULLIF($5::NUMERIC(5,4), 0), NULLIF($6, 0),
			NULLIF($7, 0), $8, NULLIF($9, ''), NULLIF($10, ''), $11,
			$12::jsonb, COALESCE($13::jsonb, '{}'::jsonb), NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			source = COALESCE(NULLIF(EXCLUDED.source, ''), textextract.ocr_jobs.source),
			platform = COALESCE(EXCLUDED.platform, textextract.ocr_jobs.platform),
			confidence = COALESCE(EXCLUDED.confidence, textextract.ocr_jobs.confidence),
			processing_time_ms = COALESCE(EXCLUDED.processing_time_ms, textextract.ocr_jobs.processing_time_ms),
			block_count = COALESCE(EXCLUDED.block_count, textextract.ocr_jobs.block_count),
			languages = COALESCE(EXCLUDED.languages, textextract.ocr_jobs.languages),
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			attempts = GREATEST(EXCLUDED.attempts, textextract.ocr_jobs.attempts),
			result = COALESCE(EXCLUDED.result, textextract.ocr_jobs.result),
			metadata = textextract.ocr_jobs.metadata || EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,                          // $1 - id
		update.Source,                         // $2 - source
		update.Status,                         // $3 - status
		update.Platform,                       // $4 - platform
		sanitizeConfidence(update.Confidence), // $5 - confidence (4 decimals)
		update.ProcessingTimeMs,               // $6 - processing_time_ms
		update.BlockCount,                     // $7 - block_count
		pq.Array(update.Languages),            // $8 - languages
		update.ErrorCode,                      // $9 - error_code
		update.ErrorMessage,                   // $10 - error_message
		update.Attempts,                       // $11 - attempts
		resultJSON,                            // $12 - result
		string(metadataJSON),                  // $13 - metadata
	).Scan(&returnedID)

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

func validateUpdate(update *JobUpdate) error {
	if update == nil {
		return fmt.Errorf("update is required")
	}
	if update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	if update.Status == "" {
		return fmt.Errorf("status is required")
	}
	return nil
}

// GetJobByID retrieves a job by ID
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (*JobRecord, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	query := `
		SELECT
			id, source, status, platform, confidence, processing_time_ms,
			block_count, languages, error_code, error_message, attempts,
			result, metadata, created_at, updated_at
		FROM textextract.ocr_jobs
		WHERE id = $1::uuid
	`

	var (
		rec                               JobRecord
		platform, errorCode, errorMessage sql.NullString
		confidence                        sql.NullFloat64
		processingTimeMs                  sql.NullInt64
		blockCount                        sql.NullInt64
		languages                         pq.StringArray
		resultJSON, metadataJSON          []byte
	)

	err := p.db.QueryRowContext(ctx, query, jobID).Scan(
		&rec.JobID, &rec.Source, &rec.Status, &platform, &confidence, &processingTimeMs,
		&blockCount, &languages, &errorCode, &errorMessage, &rec.Attempts,
		&resultJSON, &metadataJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	rec.Platform = platform.String
	rec.Confidence = confidence.Float64
	rec.ProcessingTimeMs = processingTimeMs.Int64
	rec.BlockCount = int(blockCount.Int64)
	rec.Languages = []string(languages)
	rec.ErrorCode = errorCode.String
	rec.ErrorMessage = errorMessage.String
	if len(resultJSON) > 0 {
		rec.Result = json.RawMessage(resultJSON)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &rec, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}
