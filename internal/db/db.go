// Package db provides optional PostgreSQL storage for evaluation artifacts.
// The database is a best-effort mirror of the file-based outputs: the pipeline
// works without it, and callers log failed writes instead of aborting.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Evaluation statuses recorded on an evaluation row.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateEvaluation records the start of one compliance evaluation run and
// returns its row ID.
func (db *DB) CreateEvaluation(ctx context.Context, documentUUID, specTitle string, proposalPaths []string) (uuid.UUID, error) {
	paths, err := json.Marshal(proposalPaths)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal proposal paths: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO evaluations (document_uuid, spec_title, proposal_paths, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		documentUUID, specTitle, paths, StatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create evaluation: %w", err)
	}
	return id, nil
}

// CompleteEvaluation marks an evaluation run as finished.
func (db *DB) CompleteEvaluation(ctx context.Context, evaluationID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE evaluations SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, evaluationID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete evaluation: %w", err)
	}
	return nil
}

// SaveArtifact stores a JSON artifact for an evaluation, keyed by policy ID.
// Re-saving the same policy for the same evaluation overwrites the previous
// artifact.
func (db *DB) SaveArtifact(ctx context.Context, evaluationID uuid.UUID, policyID string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO evaluation_artifacts (evaluation_id, policy_id, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (evaluation_id, policy_id) DO UPDATE SET content = $3, created_at = NOW()`,
		evaluationID, policyID, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", policyID, err)
	}
	return nil
}

// GetArtifact retrieves an artifact's raw JSON by evaluation and policy ID.
// It returns nil when no artifact exists.
func (db *DB) GetArtifact(ctx context.Context, evaluationID uuid.UUID, policyID string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM evaluation_artifacts WHERE evaluation_id = $1 AND policy_id = $2`,
		evaluationID, policyID,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", policyID, err)
	}
	return content, nil
}
