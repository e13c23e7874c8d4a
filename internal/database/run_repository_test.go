package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/imagine/internal/models"
	"github.com/snappy-loop/imagine/migrations"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(ctx, db.DB); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

func TestRecordAndGetRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	result := &models.GenerationResult{
		RunID:     uuid.New(),
		Prompt:    "a cat",
		Message:   "Generated 1 of 2 images.",
		ImageURLs: []string{"https://bucket.s3.amazonaws.com/1_1.png"},
		Requested: 2,
		Succeeded: 1,
		Failed:    1,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Iterations: []models.IterationOutcome{
			{
				Index: 1, Status: models.StatusSucceeded, ElaboratedPrompt: "a majestic cat",
				SourceURL: "https://img.example/u1", Key: "1_1.png", URL: "https://bucket.s3.amazonaws.com/1_1.png",
			},
			{Index: 2, Status: models.StatusFailed, Step: models.StepRender, Error: "upstream error: no image url in response"},
		},
	}
	t.Cleanup(func() {
		db.ExecContext(context.Background(), `DELETE FROM generation_runs WHERE id = $1`, result.RunID)
	})

	if err := repo.RecordRun(ctx, result); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := repo.GetRun(ctx, result.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Prompt != "a cat" || got.Requested != 2 || got.Succeeded != 1 || got.Failed != 1 {
		t.Errorf("run = %+v", got)
	}
	if !got.CreatedAt.Equal(result.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, result.CreatedAt)
	}
	if len(got.Iterations) != 2 {
		t.Fatalf("iterations = %d, want 2", len(got.Iterations))
	}
	if got.Iterations[0] != result.Iterations[0] || got.Iterations[1] != result.Iterations[1] {
		t.Errorf("iterations = %+v", got.Iterations)
	}
	if len(got.ImageURLs) != 1 || got.ImageURLs[0] != result.ImageURLs[0] {
		t.Errorf("ImageURLs = %v", got.ImageURLs)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewRunRepository(db).GetRun(context.Background(), uuid.New())
	if !errors.Is(err, &NotFoundError{}) {
		t.Errorf("error = %v, want NotFoundError", err)
	}
}

func TestRecordRun_DuplicateRollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	result := &models.GenerationResult{
		RunID:     uuid.New(),
		Prompt:    "p",
		Message:   "m",
		Requested: 2,
		CreatedAt: time.Now().UTC(),
		Iterations: []models.IterationOutcome{
			{Index: 1, Status: models.StatusFailed, Step: models.StepElaborate, Error: "x"},
			{Index: 1, Status: models.StatusFailed, Step: models.StepElaborate, Error: "x"},
		},
	}

	if err := repo.RecordRun(ctx, result); err == nil {
		t.Fatal("expected error for duplicate iteration index")
	}
	if _, err := repo.GetRun(ctx, result.RunID); !errors.Is(err, &NotFoundError{}) {
		t.Errorf("run should not exist after rollback, got %v", err)
	}
}
