package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/imagine/internal/models"
)

// RunRepository stores generation runs and their per-image outcomes
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// RecordRun writes the run and all its iterations in one transaction
func (r *RunRepository) RecordRun(ctx context.Context, result *models.GenerationResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO generation_runs (
			id, prompt, requested, succeeded, failed, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		result.RunID, result.Prompt, result.Requested, result.Succeeded,
		result.Failed, result.Message, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, it := range result.Iterations {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO generation_images (
				run_id, idx, status, step, error, elaborated_prompt,
				source_url, s3_key, public_url
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			result.RunID, it.Index, it.Status, nullString(it.Step), nullString(it.Error),
			nullString(it.ElaboratedPrompt), nullString(it.SourceURL), nullString(it.Key),
			nullString(it.URL),
		)
		if err != nil {
			return fmt.Errorf("failed to insert image %d: %w", it.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	log.Debug().
		Str("run_id", result.RunID.String()).
		Int("iterations", len(result.Iterations)).
		Msg("Run recorded")

	return nil
}

// GetRun loads a run with its iterations. Unknown IDs return a *NotFoundError.
func (r *RunRepository) GetRun(ctx context.Context, runID uuid.UUID) (*models.GenerationResult, error) {
	result := &models.GenerationResult{RunID: runID}

	err := r.db.QueryRowContext(ctx, `
		SELECT prompt, requested, succeeded, failed, message, created_at
		FROM generation_runs
		WHERE id = $1
	`, runID).Scan(
		&result.Prompt, &result.Requested, &result.Succeeded,
		&result.Failed, &result.Message, &result.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("run")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT idx, status, step, error, elaborated_prompt, source_url, s3_key, public_url
		FROM generation_images
		WHERE run_id = $1
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run images: %w", err)
	}
	defer rows.Close()

	result.ImageURLs = []string{}
	for rows.Next() {
		var it models.IterationOutcome
		var step, errText, elaborated, sourceURL, key, url sql.NullString
		if err := rows.Scan(&it.Index, &it.Status, &step, &errText, &elaborated, &sourceURL, &key, &url); err != nil {
			return nil, fmt.Errorf("failed to scan run image: %w", err)
		}
		it.Step = step.String
		it.Error = errText.String
		it.ElaboratedPrompt = elaborated.String
		it.SourceURL = sourceURL.String
		it.Key = key.String
		it.URL = url.String

		result.Iterations = append(result.Iterations, it)
		if it.Status == models.StatusSucceeded {
			result.ImageURLs = append(result.ImageURLs, it.URL)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run images: %w", err)
	}

	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
