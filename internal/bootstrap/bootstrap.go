// Package bootstrap wires the run pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/autoshorts/internal/audio"
	"github.com/maauso/autoshorts/internal/captions"
	"github.com/maauso/autoshorts/internal/config"
	"github.com/maauso/autoshorts/internal/llm"
	"github.com/maauso/autoshorts/internal/media"
	"github.com/maauso/autoshorts/internal/pipeline"
	"github.com/maauso/autoshorts/internal/run"
	"github.com/maauso/autoshorts/internal/script"
	"github.com/maauso/autoshorts/internal/stock"
	"github.com/maauso/autoshorts/internal/storage"
	"github.com/maauso/autoshorts/internal/upload"
)

// Sampling settings for the OpenAI-compatible providers.
const (
	chatTemperature = 0.7
	chatMaxTokens   = 1024
)

// Dependencies holds all initialized dependencies for the entry points.
type Dependencies struct {
	Service *pipeline.Service
	Catalog *config.Catalog
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	// Script generation
	gen, err := newGenerator(cfg, catalog, logger)
	if err != nil {
		return nil, err
	}
	writer := script.NewWriter(gen,
		script.WithSecondsPerClip(cfg.SecondsPerClip),
		script.WithDescriptionSuffix(descriptionSuffix(cfg)),
		script.WithLogger(logger),
	)

	// Stock footage
	pexels, err := stock.NewClient(cfg.PexelsAPIKey,
		stock.WithPerPage(cfg.PexelsPerPage),
		stock.WithSearchTimeout(time.Duration(cfg.PexelsTimeoutSec)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create Pexels client: %w", err)
	}

	// Narration
	narrator := audio.NewChunkedSynthesizer(audio.NewEdgeTTS(cfg.EdgeTTSPath), cfg.TTSVoice,
		audio.WithChunkWords(cfg.TTSChunkWords),
		audio.WithConcurrency(cfg.TTSConcurrency),
		audio.WithLogger(logger),
	)

	uploader, err := upload.NewYouTubeUploader(upload.Config{
		ClientID:     cfg.YouTubeClientID,
		ClientSecret: cfg.YouTubeClientSecret,
		RefreshToken: cfg.YouTubeRefreshToken,
		CategoryID:   cfg.YouTubeCategoryID,
		Privacy:      cfg.YouTubePrivacy,
	}, upload.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create YouTube uploader: %w", err)
	}

	root, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured", slog.String("temp_dir", root.Dir()))

	repo := run.NewMemoryRepository()

	opts := []pipeline.Option{
		pipeline.WithRepository(repo),
		pipeline.WithGenres(catalog.Genres),
		pipeline.WithCanvas(media.Canvas{Width: cfg.VideoWidth, Height: cfg.VideoHeight, FPS: cfg.VideoFPS}),
		pipeline.WithCaptionStyle(captionStyle(cfg)),
		pipeline.WithLogger(logger),
	}

	archive, err := initArchive(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if archive != nil {
		opts = append(opts, pipeline.WithArchiver(archive))
	}

	driver, err := pipeline.NewDriver(pipeline.Deps{
		Writer:      writer,
		Narrator:    narrator,
		Fetcher:     stock.NewFetcher(pexels, logger),
		Media:       media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath),
		Transcriber: captions.NewWhisper(cfg.WhisperPath, cfg.WhisperModel, cfg.WhisperLanguage),
		Uploader:    uploader,
		Workspaces:  workspaceFactory(root),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pipeline driver: %w", err)
	}

	return &Dependencies{
		Service: pipeline.NewService(driver, repo, pipeline.WithServiceLogger(logger)),
		Catalog: catalog,
	}, nil
}

// newGenerator builds the provider chain Gemini, Groq, OpenRouter, skipping
// providers without a key. Gemini and OpenRouter each expand into a nested
// chain over their catalog models.
func newGenerator(cfg *config.Config, catalog *config.Catalog, logger *slog.Logger) (*llm.Fallback, error) {
	var providers []llm.Provider

	if cfg.GeminiAPIKey != "" {
		var models []llm.Provider
		for _, m := range catalog.GeminiModels {
			p, err := llm.NewGeminiProvider(cfg.GeminiAPIKey, m)
			if err != nil {
				return nil, fmt.Errorf("create Gemini provider: %w", err)
			}
			models = append(models, p)
		}
		if chain, err := llm.NewFallback("gemini", models, logger); err == nil {
			providers = append(providers, chain)
		} else {
			logger.Warn("gemini key set but no models in catalog")
		}
	}

	if cfg.GroqAPIKey != "" {
		p, err := llm.NewChatProvider(llm.ChatConfig{
			Label:       "groq",
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     llm.GroqBaseURL,
			Model:       cfg.GroqModel,
			Mode:        llm.ResponseModeJSONObject,
			Temperature: chatTemperature,
			MaxTokens:   chatMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create Groq provider: %w", err)
		}
		providers = append(providers, p)
	}

	if cfg.OpenRouterAPIKey != "" {
		var models []llm.Provider
		for _, m := range catalog.OpenRouterModels {
			p, err := llm.NewChatProvider(llm.ChatConfig{
				Label:       "openrouter",
				APIKey:      cfg.OpenRouterAPIKey,
				BaseURL:     llm.OpenRouterBaseURL,
				Model:       m,
				Mode:        llm.ResponseModeText,
				Temperature: chatTemperature,
				MaxTokens:   chatMaxTokens,
			})
			if err != nil {
				return nil, fmt.Errorf("create OpenRouter provider: %w", err)
			}
			models = append(models, p)
		}
		if chain, err := llm.NewFallback("openrouter", models, logger); err == nil {
			providers = append(providers, chain)
		} else {
			logger.Warn("openrouter key set but no models in catalog")
		}
	}

	chain, err := llm.NewFallback("llm", providers, logger)
	if err != nil {
		return nil, fmt.Errorf("create provider chain: %w", err)
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	logger.Info("LLM providers configured", slog.Any("order", names))
	return chain, nil
}

// initArchive returns the S3 archive, or nil when S3 is not configured.
func initArchive(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.S3Archive, error) {
	if !cfg.S3Enabled() {
		return nil, nil
	}

	archive, err := storage.NewS3Archive(ctx, storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 archive: %w", err)
	}
	logger.Info("S3 archive configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return archive, nil
}

func workspaceFactory(root *storage.LocalStorage) pipeline.WorkspaceFactory {
	return func(runID string) (pipeline.Workspace, error) {
		ws, err := root.Sub(runID)
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
}

func descriptionSuffix(cfg *config.Config) string {
	if cfg.DescriptionSuffix != "" {
		return cfg.DescriptionSuffix
	}
	return script.DefaultDescriptionSuffix
}

// captionStyle scales the default font to the configured canvas height.
func captionStyle(cfg *config.Config) captions.Style {
	style := captions.DefaultStyle()
	if cfg.VideoWidth <= 0 || cfg.VideoHeight <= 0 {
		return style
	}
	style.FontSize = style.FontSize * cfg.VideoHeight / style.PlayResY
	style.PlayResX = cfg.VideoWidth
	style.PlayResY = cfg.VideoHeight
	return style
}
