package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/imagine/internal/database"
	"github.com/snappy-loop/imagine/internal/models"
)

// generator is the subset of processor.Processor used by Handler.
type generator interface {
	Run(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
}

// runReader is the subset of database.RunRepository used by Handler. May be nil when the
// ledger is disabled.
type runReader interface {
	GetRun(ctx context.Context, runID uuid.UUID) (*models.GenerationResult, error)
}

// Handler serves the generation pipeline over HTTP and as a serverless event handler
type Handler struct {
	generator generator
	runs      runReader
}

// NewHandler creates a new handler. runs may be nil.
func NewHandler(generator generator, runs runReader) *Handler {
	return &Handler{
		generator: generator,
		runs:      runs,
	}
}

// GenerateImages handles POST /generate-images
func (h *Handler) GenerateImages(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.generator.Run(r.Context(), &req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate images")
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetRun handles GET /runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSONError(w, http.StatusNotFound, "run ledger disabled")
		return
	}

	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	result, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, &database.NotFoundError{}) {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		log.Error().Err(err).Str("run_id", runID.String()).Msg("Failed to get run")
		writeJSONError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleEvent is the serverless entry point. The result is JSON-encoded into Body;
// a validation failure is returned as the invocation error.
func (h *Handler) HandleEvent(ctx context.Context, event models.GenerationRequest) (*models.LambdaResponse, error) {
	result, err := h.generator.Run(ctx, &event)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &models.LambdaResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
