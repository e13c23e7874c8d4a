package processor

import (
	"context"

	"github.com/snappy-loop/imagine/internal/models"
)

// Elaborator rewrites the caller's prompt. Implemented by llm.Client.
type Elaborator interface {
	ElaboratePrompt(ctx context.Context, originalPrompt string) (string, error)
}

// Renderer turns a prompt into an image. Implemented by llm.Client.
type Renderer interface {
	RenderImage(ctx context.Context, prompt string) (*models.RenderedImage, error)
}

// Persister copies a rendered image to the object store. Implemented by storage.Persister.
type Persister interface {
	Persist(ctx context.Context, img *models.RenderedImage, key string) (*models.PersistedImage, error)
}

// KeyGenerator names the object for a 1-based iteration index. Implemented by keys.Generator.
type KeyGenerator interface {
	Next(index int) string
}

// RunRecorder stores finished runs (e.g. in Postgres). May be nil to skip recording.
type RunRecorder interface {
	RecordRun(ctx context.Context, result *models.GenerationResult) error
}

// RunPublisher announces finished runs (e.g. to Kafka). May be nil to skip publishing.
type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, result *models.GenerationResult) error
}
