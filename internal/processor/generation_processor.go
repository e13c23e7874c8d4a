package processor

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/imagine/internal/models"
)

// sideEffectTimeout bounds recording and publishing after the loop
const sideEffectTimeout = 10 * time.Second

// maxPromptLogChars is how much of an elaborated prompt goes into logs
const maxPromptLogChars = 80

// Processor runs the elaborate, render, persist pipeline once per requested image
type Processor struct {
	elaborator  Elaborator
	renderer    Renderer
	persister   Persister
	keys        KeyGenerator
	stepTimeout time.Duration

	recorder  RunRecorder
	publisher RunPublisher
	now       func() time.Time
}

// NewProcessor creates a processor. stepTimeout bounds every outbound call; zero
// leaves only the caller's context in charge.
func NewProcessor(
	elaborator Elaborator,
	renderer Renderer,
	persister Persister,
	keys KeyGenerator,
	stepTimeout time.Duration,
) *Processor {
	return &Processor{
		elaborator:  elaborator,
		renderer:    renderer,
		persister:   persister,
		keys:        keys,
		stepTimeout: stepTimeout,
		now:         time.Now,
	}
}

// WithRecorder attaches the run ledger
func (p *Processor) WithRecorder(r RunRecorder) *Processor {
	p.recorder = r
	return p
}

// WithPublisher attaches the run event publisher
func (p *Processor) WithPublisher(pub RunPublisher) *Processor {
	p.publisher = pub
	return p
}

// Run executes one invocation. Only a validation failure is returned as an error;
// per-iteration failures are logged and reported in the result's outcomes.
func (p *Processor) Run(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	// Presence only: whitespace is a prompt like any other.
	if req == nil || req.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", models.ErrValidation)
	}

	count := req.Count()
	result := &models.GenerationResult{
		RunID:      uuid.New(),
		Prompt:     req.Prompt,
		ImageURLs:  []string{},
		Requested:  count,
		Iterations: make([]models.IterationOutcome, 0, count),
		CreatedAt:  p.now().UTC(),
	}

	logger := log.With().Str("run_id", result.RunID.String()).Logger()
	logger.Info().
		Int("num_images", count).
		Int("prompt_length", len(req.Prompt)).
		Msg("Starting generation run")

	for i := 1; i <= count; i++ {
		if ctx.Err() != nil {
			result.Iterations = append(result.Iterations, models.IterationOutcome{
				Index:  i,
				Status: models.StatusCanceled,
				Error:  ctx.Err().Error(),
			})
			continue
		}

		outcome := p.runIteration(ctx, req.Prompt, i)
		if outcome.Status == models.StatusSucceeded {
			result.ImageURLs = append(result.ImageURLs, outcome.URL)
			logger.Info().
				Int("iteration", i).
				Str("key", outcome.Key).
				Str("url", outcome.URL).
				Msg("Image generated")
		} else {
			logger.Error().
				Int("iteration", i).
				Str("status", outcome.Status).
				Str("step", outcome.Step).
				Str("error", outcome.Error).
				Msg("Image generation failed")
		}
		result.Iterations = append(result.Iterations, outcome)
	}

	result.Succeeded = len(result.ImageURLs)
	result.Failed = result.Requested - result.Succeeded
	result.Message = summaryMessage(result)

	done := logger.Info()
	if result.Partial() {
		done = logger.Warn()
	}
	done.
		Int("requested", result.Requested).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Generation run completed")

	p.afterRun(ctx, result)

	return result, nil
}

// runIteration performs one elaborate, render, persist cycle. Errors never escape.
func (p *Processor) runIteration(ctx context.Context, prompt string, index int) models.IterationOutcome {
	outcome := models.IterationOutcome{Index: index}

	fail := func(step string, err error) models.IterationOutcome {
		outcome.Status = models.StatusFailed
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			outcome.Status = models.StatusCanceled
		}
		outcome.Step = step
		outcome.Error = err.Error()
		return outcome
	}

	var elaborated string
	err := p.step(ctx, func(stepCtx context.Context) error {
		var err error
		elaborated, err = p.elaborator.ElaboratePrompt(stepCtx, prompt)
		return err
	})
	if err != nil {
		return fail(models.StepElaborate, err)
	}
	outcome.ElaboratedPrompt = elaborated

	log.Debug().
		Int("iteration", index).
		Str("elaborated_prompt", truncate(elaborated, maxPromptLogChars)).
		Msg("Prompt elaborated")

	var rendered *models.RenderedImage
	err = p.step(ctx, func(stepCtx context.Context) error {
		var err error
		rendered, err = p.renderer.RenderImage(stepCtx, elaborated)
		return err
	})
	if err != nil {
		return fail(models.StepRender, err)
	}
	outcome.SourceURL = rendered.SourceURL

	log.Debug().
		Int("iteration", index).
		Str("model", rendered.Model).
		Str("mime_type", rendered.MimeType).
		Str("revised_prompt", truncate(rendered.RevisedPrompt, maxPromptLogChars)).
		Msg("Image rendered")

	key := p.keys.Next(index)
	var persisted *models.PersistedImage
	err = p.step(ctx, func(stepCtx context.Context) error {
		var err error
		persisted, err = p.persister.Persist(stepCtx, rendered, key)
		return err
	})
	if err != nil {
		outcome.Key = key
		return fail(models.StepPersist, err)
	}

	outcome.Status = models.StatusSucceeded
	outcome.Key = persisted.Key
	outcome.URL = persisted.PublicURL
	return outcome
}

// step runs fn under the per-call timeout
func (p *Processor) step(ctx context.Context, fn func(context.Context) error) error {
	if p.stepTimeout <= 0 {
		return fn(ctx)
	}
	stepCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()
	return fn(stepCtx)
}

// afterRun records and publishes the result. Failures are logged only.
func (p *Processor) afterRun(ctx context.Context, result *models.GenerationResult) {
	if p.recorder == nil && p.publisher == nil {
		return
	}

	// The caller may already be gone; the ledger should still see the run.
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if p.recorder != nil {
		if err := p.recorder.RecordRun(sideCtx, result); err != nil {
			log.Error().Err(err).Str("run_id", result.RunID.String()).Msg("Failed to record run")
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishRunCompleted(sideCtx, result); err != nil {
			log.Error().Err(err).Str("run_id", result.RunID.String()).Msg("Failed to publish run event")
		}
	}
}

// summaryMessage reports the actual number of persisted images
func summaryMessage(result *models.GenerationResult) string {
	if !result.Partial() {
		return fmt.Sprintf("Successfully generated %d images.", result.Requested)
	}
	return fmt.Sprintf("Generated %d of %d images.", result.Succeeded, result.Requested)
}

// truncate cuts s to at most n bytes on a rune boundary
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
