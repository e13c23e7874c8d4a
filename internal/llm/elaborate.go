package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/imagine/internal/models"
	"github.com/tmc/langchaingo/llms"
)

const elaborationSystemPrompt = "You are a creative assistant for image generation prompt design."

// elaborationTemperature matches the completion service's default sampling.
const elaborationTemperature = 1.0

// elaborationUserPrompt embeds the caller's prompt verbatim.
const elaborationUserPrompt = "Create a new image prompt based on this input: %s. Make it original and different and add your own creativity."

// ElaboratePrompt asks the completion service for a creative variant of the prompt.
// The first choice is returned unmodified.
func (c *Client) ElaboratePrompt(ctx context.Context, originalPrompt string) (string, error) {
	log.Debug().
		Str("model", c.promptModel).
		Int("prompt_length", len(originalPrompt)).
		Msg("Elaborating prompt")

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, elaborationSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(elaborationUserPrompt, originalPrompt)),
	}

	resp, err := c.textModel.GenerateContent(ctx, messages, llms.WithMaxTokens(c.maxTokens), llms.WithTemperature(elaborationTemperature))
	if err != nil {
		return "", fmt.Errorf("%w: prompt elaboration failed: %w", models.ErrUpstream, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: completion response has no choices", models.ErrUpstream)
	}

	text := resp.Choices[0].Content
	if text == "" {
		return "", fmt.Errorf("%w: completion response has empty content", models.ErrUpstream)
	}

	logResponse("ElaboratePrompt", text)

	return text, nil
}
