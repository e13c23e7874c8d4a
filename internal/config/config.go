package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted by PROMPT_PROVIDER and IMAGE_PROVIDER.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
	ProviderGemini   = "gemini"
)

// Key formats accepted by KEY_FORMAT.
const (
	KeyFormatUnique = "unique"
	KeyFormatLegacy = "legacy"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr         string
	HTTPWriteTimeout time.Duration
	LogLevel         string

	// OpenAI (completion + image generation)
	OpenAIAPIKey   string
	OpenAIEndpoint string

	// Prompt elaboration
	PromptProvider  string // openai or googleai
	PromptModel     string
	PromptMaxTokens int

	// Image rendering
	ImageProvider string // openai or gemini
	ImageModel    string
	ImageSize     string // e.g. 1792x1024
	ImageQuality  string // e.g. hd
	ImageStyle    string // e.g. natural

	// Gemini
	GeminiAPIKey      string
	GeminiModelText   string
	GeminiModelImage  string
	GeminiAspectRatio string
	GeminiEndpoint    string // optional base URL override, e.g. a local proxy

	// S3/Storage
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	// Processing
	KeyFormat       string
	UpstreamTimeout time.Duration

	// Run ledger (optional)
	DatabaseURL string

	// Kafka (optional)
	KafkaBrokers   []string
	KafkaTopicRuns string
}

// Load loads configuration from environment variables. A .env file in the working
// directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	httpAddr := getEnv("HTTP_ADDR", "")
	if httpAddr == "" {
		httpAddr = ":" + getEnv("PORT", "8080")
	}

	return &Config{
		HTTPAddr:         httpAddr,
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Minute),
		LogLevel:         getEnv("LOG_LEVEL", "info"),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIEndpoint: strings.TrimSuffix(getEnv("OPENAI_API_ENDPOINT", "https://api.openai.com/v1"), "/"),

		PromptProvider:  strings.ToLower(getEnv("PROMPT_PROVIDER", ProviderOpenAI)),
		PromptModel:     getEnv("PROMPT_MODEL", "gpt-4o-mini"),
		PromptMaxTokens: clampMin(getEnvInt("PROMPT_MAX_TOKENS", 100), 1),

		ImageProvider: strings.ToLower(getEnv("IMAGE_PROVIDER", ProviderOpenAI)),
		ImageModel:    getEnv("IMAGE_MODEL", "dall-e-3"),
		ImageSize:     getEnv("IMAGE_SIZE", "1792x1024"),
		ImageQuality:  getEnv("IMAGE_QUALITY", "hd"),
		ImageStyle:    getEnv("IMAGE_STYLE", "natural"),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelText:   getEnv("GEMINI_MODEL_TEXT", "gemini-2.5-flash-lite"),
		GeminiModelImage:  getEnv("GEMINI_MODEL_IMAGE", "imagen-3.0-generate-002"),
		GeminiAspectRatio: getEnv("GEMINI_ASPECT_RATIO", "16:9"),
		GeminiEndpoint:    strings.TrimSuffix(getEnv("GEMINI_API_ENDPOINT", ""), "/"),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:    getEnv("OUTPUT_BUCKET", "dalle-generated-images"),
		S3AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),

		KeyFormat:       strings.ToLower(getEnv("KEY_FORMAT", KeyFormatUnique)),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 2*time.Minute),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		KafkaBrokers:   getEnvList("KAFKA_BROKERS"),
		KafkaTopicRuns: getEnv("KAFKA_TOPIC_RUNS", "imagine.runs.v1"),
	}
}

// Validate reports missing credentials and unknown provider names. Callers treat
// a non-nil error as fatal at startup.
func (c *Config) Validate() error {
	switch c.PromptProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderGoogleAI:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for PROMPT_PROVIDER=%s", c.PromptProvider)
		}
	default:
		return fmt.Errorf("unsupported PROMPT_PROVIDER: %s", c.PromptProvider)
	}

	switch c.ImageProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for IMAGE_PROVIDER=%s", c.ImageProvider)
		}
	default:
		return fmt.Errorf("unsupported IMAGE_PROVIDER: %s", c.ImageProvider)
	}

	if c.S3Bucket == "" {
		return fmt.Errorf("OUTPUT_BUCKET must not be empty")
	}

	if c.KeyFormat != KeyFormatUnique && c.KeyFormat != KeyFormatLegacy {
		return fmt.Errorf("unsupported KEY_FORMAT: %s", c.KeyFormat)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// clampMin returns v if v >= min, otherwise min. Used to ensure config values are in valid range.
func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
