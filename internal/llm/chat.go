package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Compile-time check that ChatProvider implements Provider.
var _ Provider = (*ChatProvider)(nil)

// Well-known OpenAI-compatible endpoints.
const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// ResponseMode selects how a ChatProvider asks for JSON.
type ResponseMode int

const (
	// ResponseModeText sends no response_format; the JSON is extracted from prose.
	ResponseModeText ResponseMode = iota
	// ResponseModeJSONObject requests response_format=json_object.
	ResponseModeJSONObject
	// ResponseModeJSONSchema requests strict json_schema output when the request carries a schema.
	ResponseModeJSONSchema
)

// ChatProvider calls an OpenAI-compatible chat completions API for one model.
type ChatProvider struct {
	label       string
	model       string
	mode        ResponseMode
	temperature float64
	maxTokens   int64
	client      openai.Client
}

// ChatConfig configures a ChatProvider.
type ChatConfig struct {
	// Label prefixes the provider name, e.g. "groq" or "openrouter".
	Label   string
	APIKey  string
	BaseURL string
	Model   string
	Mode    ResponseMode
	// Temperature is omitted from the request when zero.
	Temperature float64
	// MaxTokens is omitted from the request when zero.
	MaxTokens  int64
	HTTPClient *http.Client
}

// NewChatProvider creates a provider for a single chat model.
// SDK-level retries are disabled; retrying is the fallback chain's job.
func NewChatProvider(cfg ChatConfig) (*ChatProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrAPIKeyRequired, cfg.Label)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: %s model is required", cfg.Label)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &ChatProvider{
		label:       cfg.Label,
		model:       cfg.Model,
		mode:        cfg.Mode,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      openai.NewClient(opts...),
	}, nil
}

// Name returns "<label>:<model>".
func (p *ChatProvider) Name() string {
	return p.label + ":" + p.model
}

// Attempt sends the prompt as a single user message and extracts the JSON payload.
func (p *ChatProvider) Attempt(ctx context.Context, req Request) (any, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Model: openai.ChatModel(p.model),
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(p.maxTokens)
	}

	switch {
	case p.mode == ResponseModeJSONSchema && req.Schema != nil:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName(req.Name),
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	case p.mode == ResponseModeJSONObject, p.mode == ResponseModeJSONSchema:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapChatError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return ExtractJSON(text)
}

func mapChatError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", statusError(apiErr.StatusCode, apiErr.Message), err)
	}
	return fmt.Errorf("chat: request failed: %w", err)
}

func schemaName(name string) string {
	if name == "" {
		return "structured_response"
	}
	return strings.ReplaceAll(name, " ", "_")
}
