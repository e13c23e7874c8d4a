package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/snappy-loop/imagine/internal/database"
	"github.com/snappy-loop/imagine/internal/models"
)

// fakeGenerator is a minimal generator for tests.
type fakeGenerator struct {
	run   func(context.Context, *models.GenerationRequest) (*models.GenerationResult, error)
	calls int
}

func (f *fakeGenerator) Run(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	f.calls++
	if f.run != nil {
		return f.run(ctx, req)
	}
	return &models.GenerationResult{
		RunID:     uuid.New(),
		Message:   fmt.Sprintf("Successfully generated %d images.", req.Count()),
		ImageURLs: []string{"https://bucket.s3.amazonaws.com/1700000000000_1.png"},
		Requested: req.Count(),
		Succeeded: req.Count(),
	}, nil
}

type fakeRuns struct {
	getRun func(context.Context, uuid.UUID) (*models.GenerationResult, error)
}

func (f *fakeRuns) GetRun(ctx context.Context, id uuid.UUID) (*models.GenerationResult, error) {
	return f.getRun(ctx, id)
}

func TestGenerateImages_OK(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewHandler(gen, nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-images", bytes.NewBufferString(`{"prompt":"a cat"}`))
	rec := httptest.NewRecorder()
	h.GenerateImages(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		Message   string   `json:"message"`
		ImageURLs []string `json:"imageUrls"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Successfully generated 1 images." {
		t.Errorf("message = %q", body.Message)
	}
	if len(body.ImageURLs) != 1 {
		t.Errorf("imageUrls = %v", body.ImageURLs)
	}
}

func TestGenerateImages_InvalidBody(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewHandler(gen, nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-images", bytes.NewBufferString(`{"prompt":`))
	rec := httptest.NewRecorder()
	h.GenerateImages(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times", gen.calls)
	}
}

func TestGenerateImages_RunErrorIs500(t *testing.T) {
	h := NewHandler(&fakeGenerator{
		run: func(context.Context, *models.GenerationRequest) (*models.GenerationResult, error) {
			return nil, fmt.Errorf("%w: prompt is required", models.ErrValidation)
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/generate-images", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.GenerateImages(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "Internal Server Error" {
		t.Errorf("error body = %v", body)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&fakeGenerator{}, nil).Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestGetRun(t *testing.T) {
	known := uuid.New()
	runs := &fakeRuns{
		getRun: func(_ context.Context, id uuid.UUID) (*models.GenerationResult, error) {
			switch id {
			case known:
				return &models.GenerationResult{RunID: known, Requested: 1, Succeeded: 1}, nil
			case uuid.Nil:
				return nil, errors.New("connection refused")
			default:
				return nil, database.NewNotFoundError("run")
			}
		},
	}

	tests := []struct {
		name     string
		runs     runReader
		id       string
		wantCode int
	}{
		{"found", runs, known.String(), http.StatusOK},
		{"unknown", runs, uuid.New().String(), http.StatusNotFound},
		{"bad id", runs, "nope", http.StatusBadRequest},
		{"db error", runs, uuid.Nil.String(), http.StatusInternalServerError},
		{"ledger disabled", nil, known.String(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{generator: &fakeGenerator{}}
			if tt.runs != nil {
				h.runs = tt.runs
			}

			req := httptest.NewRequest(http.MethodGet, "/runs/"+tt.id, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			rec := httptest.NewRecorder()
			h.GetRun(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleEvent_Envelope(t *testing.T) {
	h := NewHandler(&fakeGenerator{}, nil)

	resp, err := h.HandleEvent(context.Background(), models.GenerationRequest{Prompt: "a cat", NumImages: 1})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}

	var body models.GenerationResult
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("body is not a JSON string of the result: %v", err)
	}
	if body.Message != "Successfully generated 1 images." || len(body.ImageURLs) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleEvent_ValidationError(t *testing.T) {
	h := NewHandler(&fakeGenerator{
		run: func(context.Context, *models.GenerationRequest) (*models.GenerationResult, error) {
			return nil, fmt.Errorf("%w: prompt is required", models.ErrValidation)
		},
	}, nil)

	_, err := h.HandleEvent(context.Background(), models.GenerationRequest{})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
