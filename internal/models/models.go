package models

import (
	"time"

	"github.com/google/uuid"
)

// Iteration statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Pipeline steps, reported on failed iterations
const (
	StepElaborate = "elaborate"
	StepRender    = "render"
	StepPersist   = "persist"
)

// GenerationRequest is the inbound payload for one invocation
type GenerationRequest struct {
	Prompt    string `json:"prompt"`
	NumImages int    `json:"numImages,omitempty"` // 0 means 1
}

// Count returns the number of iterations to run. Zero defaults to one; negative
// values run no iterations.
func (r *GenerationRequest) Count() int {
	if r.NumImages == 0 {
		return 1
	}
	if r.NumImages < 0 {
		return 0
	}
	return r.NumImages
}

// RenderedImage points at a rendered image. SourceURL is set when the provider hosts
// the bytes; Data is set when the provider returns them inline.
type RenderedImage struct {
	SourceURL     string
	Data          []byte
	MimeType      string
	RevisedPrompt string
	Model         string
}

// PersistedImage is the durable copy written to the object store
type PersistedImage struct {
	Key       string `json:"key"`
	PublicURL string `json:"url"`
	Size      int64  `json:"size_bytes"`
}

// IterationOutcome records what happened to one requested image
type IterationOutcome struct {
	Index            int    `json:"index"`  // 1-based
	Status           string `json:"status"` // succeeded, failed, canceled
	Step             string `json:"step,omitempty"`
	Error            string `json:"error,omitempty"`
	ElaboratedPrompt string `json:"elaboratedPrompt,omitempty"`
	SourceURL        string `json:"sourceUrl,omitempty"`
	Key              string `json:"key,omitempty"`
	URL              string `json:"url,omitempty"`
}

// GenerationResult is the aggregate output of one invocation. ImageURLs holds the
// persisted URLs of succeeded iterations in iteration order.
type GenerationResult struct {
	RunID      uuid.UUID          `json:"runId"`
	Prompt     string             `json:"-"`
	Message    string             `json:"message"`
	ImageURLs  []string           `json:"imageUrls"`
	Requested  int                `json:"requested"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	Iterations []IterationOutcome `json:"iterations"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// Partial reports whether at least one requested image is missing from ImageURLs
func (r *GenerationResult) Partial() bool {
	return r.Succeeded < r.Requested
}

// LambdaResponse is the envelope returned by the serverless entry point. Body holds
// the JSON-encoded GenerationResult.
type LambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}
