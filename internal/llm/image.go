package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/imagine/internal/config"
	"github.com/snappy-loop/imagine/internal/models"
	"google.golang.org/genai"
)

// imageGenerationRequest is the body of POST /images/generations
type imageGenerationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

type imageGenerationResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
}

type imageData struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// RenderImage renders one image from the prompt with the configured generation parameters.
func (c *Client) RenderImage(ctx context.Context, prompt string) (*models.RenderedImage, error) {
	log.Debug().
		Str("provider", c.imageProvider).
		Str("prompt", clip(prompt, 50)+"...").
		Msg("Rendering image")

	if c.imageProvider == config.ProviderGemini {
		return c.renderImageGenai(ctx, prompt)
	}
	return c.renderImageOpenAI(ctx, prompt)
}

// renderImageOpenAI requests a single hosted image and returns its source URL.
func (c *Client) renderImageOpenAI(ctx context.Context, prompt string) (*models.RenderedImage, error) {
	var result imageGenerationResponse
	var apiErr apiErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.openAIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(imageGenerationRequest{
			Model:   c.imageModel,
			Prompt:  prompt,
			N:       1,
			Size:    c.imageSize,
			Quality: c.imageQuality,
			Style:   c.imageStyle,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(c.openAIEndpoint + "/images/generations")
	if err != nil {
		return nil, fmt.Errorf("%w: image request failed: %w", models.ErrUpstream, err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("%w: image service returned status %d: %s", models.ErrUpstream, resp.StatusCode(), msg)
	}

	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return nil, fmt.Errorf("%w: no image url in response", models.ErrUpstream)
	}

	first := result.Data[0]
	log.Info().
		Str("caller", "RenderImage").
		Str("model", c.imageModel).
		Str("source_url", first.URL).
		Msg("Image rendered")

	return &models.RenderedImage{
		SourceURL:     first.URL,
		MimeType:      "image/png",
		RevisedPrompt: first.RevisedPrompt,
		Model:         c.imageModel,
	}, nil
}

// renderImageGenai calls Imagen through the unified genai SDK. The bytes come back
// inline, so the result has no source URL.
func (c *Client) renderImageGenai(ctx context.Context, prompt string) (*models.RenderedImage, error) {
	resp, err := c.genaiClient.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    c.aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: image generation failed: %w", models.ErrUpstream, err)
	}

	for i, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := generated.Image.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		log.Info().
			Str("caller", "RenderImage").
			Str("model", c.imageModel).
			Int("image", i).
			Int("image_size_bytes", len(generated.Image.ImageBytes)).
			Str("mime_type", mimeType).
			Msg("Image rendered (inline bytes)")
		return &models.RenderedImage{
			Data:          generated.Image.ImageBytes,
			MimeType:      mimeType,
			RevisedPrompt: generated.EnhancedPrompt,
			Model:         c.imageModel,
		}, nil
	}

	return nil, fmt.Errorf("%w: no image bytes in response", models.ErrUpstream)
}
