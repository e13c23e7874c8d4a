package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/imagine/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"
)

// maxResponseLogBytes is the max length of a model response to log in full (to avoid huge logs).
const maxResponseLogBytes = 2048

// logResponse logs model response text, truncating if over maxResponseLogBytes.
func logResponse(caller, raw string) {
	if len(raw) <= maxResponseLogBytes {
		log.Debug().Str("caller", caller).Str("response", raw).Msg("Model response")
		return
	}
	log.Debug().
		Str("caller", caller).
		Str("response", clip(raw, maxResponseLogBytes)+"... [truncated]").
		Int("response_len", len(raw)).
		Msg("Model response")
}

// clip returns at most n bytes of s without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given
// base endpoint (e.g. http://localhost:31300/gemini). A custom client bypasses the SDK's
// key transport, so the key travels as a header. Returns nil when the endpoint is invalid.
func httpClientForEndpoint(baseEndpoint, apiKey string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil || base.Host == "" {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, apiKey: apiKey, next: http.DefaultTransport},
	}
}

// endpointRoundTripper swaps scheme and host and prefixes the path.
type endpointRoundTripper struct {
	base   *url.URL
	apiKey string
	next   http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = e.base.Scheme
	out.URL.Host = e.base.Host
	out.URL.Path = path.Join("/", e.base.Path, req.URL.Path)
	out.URL.RawPath = ""
	out.Host = ""
	if e.apiKey != "" && out.Header.Get("x-goog-api-key") == "" {
		out.Header.Set("x-goog-api-key", e.apiKey)
	}
	return e.next.RoundTrip(out)
}

// Client talks to the completion service (prompt elaboration) and the image
// generation service (rendering).
type Client struct {
	promptProvider string
	promptModel    string
	maxTokens      int
	textModel      llms.Model

	imageProvider string
	imageModel    string
	imageSize     string
	imageQuality  string
	imageStyle    string
	aspectRatio   string

	openAIKey      string
	openAIEndpoint string
	http           *resty.Client
	genaiClient    *genai.Client // gemini image rendering
}

// NewClient creates a new LLM client. httpClient is shared with the image persister so
// outbound calls reuse one connection pool; nil creates a private one.
func NewClient(ctx context.Context, cfg *config.Config, httpClient *resty.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = resty.New()
	}

	c := &Client{
		promptProvider: cfg.PromptProvider,
		maxTokens:      cfg.PromptMaxTokens,
		imageProvider:  cfg.ImageProvider,
		imageSize:      cfg.ImageSize,
		imageQuality:   cfg.ImageQuality,
		imageStyle:     cfg.ImageStyle,
		aspectRatio:    cfg.GeminiAspectRatio,
		openAIKey:      cfg.OpenAIAPIKey,
		openAIEndpoint: cfg.OpenAIEndpoint,
		http:           httpClient,
	}

	switch cfg.PromptProvider {
	case config.ProviderOpenAI:
		c.promptModel = cfg.PromptModel
		model, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.PromptModel),
			openai.WithBaseURL(cfg.OpenAIEndpoint),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai completion model: %w", err)
		}
		c.textModel = model
	case config.ProviderGoogleAI:
		c.promptModel = cfg.GeminiModelText
		opts := []googleai.Option{googleai.WithAPIKey(cfg.GeminiAPIKey), googleai.WithDefaultModel(cfg.GeminiModelText)}
		if cfg.GeminiEndpoint != "" {
			if hc := httpClientForEndpoint(cfg.GeminiEndpoint, cfg.GeminiAPIKey); hc != nil {
				opts = append(opts, googleai.WithHTTPClient(hc))
			}
		}
		model, err := googleai.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize googleai completion model: %w", err)
		}
		c.textModel = model
	default:
		return nil, fmt.Errorf("unsupported prompt provider: %s", cfg.PromptProvider)
	}

	switch cfg.ImageProvider {
	case config.ProviderOpenAI:
		c.imageModel = cfg.ImageModel
	case config.ProviderGemini:
		c.imageModel = cfg.GeminiModelImage
		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      cfg.GeminiAPIKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPOptions: genai.HTTPOptions{BaseURL: cfg.GeminiEndpoint},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize genai client for image generation: %w", err)
		}
		c.genaiClient = genaiClient
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.ImageProvider)
	}

	log.Info().
		Str("prompt_provider", c.promptProvider).
		Str("prompt_model", c.promptModel).
		Int("prompt_max_tokens", c.maxTokens).
		Str("image_provider", c.imageProvider).
		Str("image_model", c.imageModel).
		Msg("LLM client initialized")

	return c, nil
}
