// Package config provides configuration loading from environment variables
// and the topic and model catalog.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrPexelsAPIKeyRequired is returned when PEXELS_API_KEY is not set.
	ErrPexelsAPIKeyRequired = errors.New("config: PEXELS_API_KEY is required")
	// ErrYouTubeCredentialsRequired is returned when the YouTube OAuth settings are incomplete.
	ErrYouTubeCredentialsRequired = errors.New("config: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN are required")
	// ErrNoProviderConfigured is returned when no LLM provider has an API key.
	ErrNoProviderConfigured = errors.New("config: at least one of GEMINI_API_KEY, GROQ_API_KEY, OPENROUTER_API_KEY is required")
	// ErrInvalid wraps struct validation failures.
	ErrInvalid = errors.New("config: invalid value")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port         int    `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`
	TriggerToken string `env:"TRIGGER_TOKEN" json:"-"` // Masked in JSON

	// LLM providers, tried in order Gemini, Groq, OpenRouter
	GeminiAPIKey     string `env:"GEMINI_API_KEY" json:"-"`
	GroqAPIKey       string `env:"GROQ_API_KEY" json:"-"`
	GroqModel        string `env:"GROQ_MODEL, default=llama-3.3-70b-versatile" json:"groq_model" validate:"required"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY" json:"-"`

	// Stock footage
	PexelsAPIKey     string  `env:"PEXELS_API_KEY, required" json:"-"`
	PexelsPerPage    int     `env:"PEXELS_PER_PAGE, default=30" json:"pexels_per_page" validate:"min=1,max=80"`
	PexelsTimeoutSec int     `env:"PEXELS_TIMEOUT_SEC, default=15" json:"pexels_timeout_sec" validate:"min=1"`
	SecondsPerClip   float64 `env:"SECONDS_PER_CLIP, default=10" json:"seconds_per_clip" validate:"gt=0"`

	// Upload
	YouTubeClientID     string `env:"YOUTUBE_CLIENT_ID, required" json:"youtube_client_id"`
	YouTubeClientSecret string `env:"YOUTUBE_CLIENT_SECRET, required" json:"-"`
	YouTubeRefreshToken string `env:"YOUTUBE_REFRESH_TOKEN, required" json:"-"`
	YouTubePrivacy      string `env:"YOUTUBE_PRIVACY, default=public" json:"youtube_privacy" validate:"oneof=public unlisted private"`
	YouTubeCategoryID   string `env:"YOUTUBE_CATEGORY_ID, default=22" json:"youtube_category_id" validate:"numeric"`

	// Narration
	TTSVoice       string `env:"TTS_VOICE, default=en-US-JennyNeural" json:"tts_voice" validate:"required"`
	TTSChunkWords  int    `env:"TTS_CHUNK_WORDS, default=500" json:"tts_chunk_words" validate:"min=1"`
	TTSConcurrency int    `env:"TTS_CONCURRENCY, default=3" json:"tts_concurrency" validate:"min=1,max=16"`
	EdgeTTSPath    string `env:"EDGE_TTS_PATH, default=edge-tts" json:"edge_tts_path"`

	// Captions
	WhisperPath     string `env:"WHISPER_PATH, default=whisper" json:"whisper_path"`
	WhisperModel    string `env:"WHISPER_MODEL, default=base" json:"whisper_model"`
	WhisperLanguage string `env:"WHISPER_LANGUAGE, default=en" json:"whisper_language"`

	// Media
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	VideoWidth  int    `env:"VIDEO_WIDTH, default=1080" json:"video_width" validate:"min=1"`
	VideoHeight int    `env:"VIDEO_HEIGHT, default=1920" json:"video_height" validate:"min=1"`
	VideoFPS    int    `env:"VIDEO_FPS, default=30" json:"video_fps" validate:"min=1,max=120"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/autoshorts" json:"temp_dir" validate:"required"`

	// Optional S3 archive
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty" validate:"required_with=S3Bucket"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Content
	DescriptionSuffix string `env:"DESCRIPTION_SUFFIX" json:"description_suffix,omitempty"`
	CatalogFile       string `env:"CATALOG_FILE" json:"catalog_file,omitempty"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	return LoadFrom(context.Background(), nil)
}

// LoadFrom reads configuration through lookuper, or the process
// environment when lookuper is nil.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	ecfg := &envconfig.Config{Target: cfg, Lookuper: lookuper}
	if lookuper == nil {
		ecfg.Lookuper = envconfig.OsLookuper()
	}

	if err := envconfig.ProcessWith(ctx, ecfg); err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "PEXELS_API_KEY"):
			return nil, ErrPexelsAPIKeyRequired
		case strings.Contains(msg, "YOUTUBE_"):
			return nil, ErrYouTubeCredentialsRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks field ranges and enums and that at least one LLM
// provider is configured.
func (c *Config) Validate() error {
	if c.PexelsAPIKey == "" {
		return ErrPexelsAPIKeyRequired
	}
	if c.YouTubeClientID == "" || c.YouTubeClientSecret == "" || c.YouTubeRefreshToken == "" {
		return ErrYouTubeCredentialsRequired
	}
	if c.GeminiAPIKey == "" && c.GroqAPIKey == "" && c.OpenRouterAPIKey == "" {
		return ErrNoProviderConfigured
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Providers lists the configured LLM providers in fallback order.
func (c *Config) Providers() []string {
	var out []string
	if c.GeminiAPIKey != "" {
		out = append(out, "gemini")
	}
	if c.GroqAPIKey != "" {
		out = append(out, "groq")
	}
	if c.OpenRouterAPIKey != "" {
		out = append(out, "openrouter")
	}
	return out
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, Providers: %v, GroqModel: %s, PexelsAPIKey: %s, PexelsPerPage: %d, SecondsPerClip: %g, "+
			"YouTubeClientID: %s, YouTubeClientSecret: %s, YouTubeRefreshToken: %s, YouTubePrivacy: %s, "+
			"TTSVoice: %s, TTSChunkWords: %d, Canvas: %dx%d@%d, TempDir: %s, S3Bucket: %s, S3Region: %s, "+
			"LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.Providers(),
		c.GroqModel,
		mask(c.PexelsAPIKey),
		c.PexelsPerPage,
		c.SecondsPerClip,
		c.YouTubeClientID,
		mask(c.YouTubeClientSecret),
		mask(c.YouTubeRefreshToken),
		c.YouTubePrivacy,
		c.TTSVoice,
		c.TTSChunkWords,
		c.VideoWidth, c.VideoHeight, c.VideoFPS,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
