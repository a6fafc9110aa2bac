package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiBody(text string) string {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider("", "gemini-2.5-flash")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestGeminiProvider_Attempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "write a script", req.Contents[0].Parts[0].Text)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiBody("```json\n{\"title\":\"Hi\"}\n```")))
	}))
	defer server.Close()

	p, err := NewGeminiProvider("test-key", "gemini-2.5-flash", WithGeminiBaseURL(server.URL))
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.5-flash", p.Name())

	v, err := p.Attempt(context.Background(), Request{Prompt: "write a script"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Hi"}, v)
}

func TestGeminiProvider_SendsResponseSchema(t *testing.T) {
	type script struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}

	var genConfig map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		genConfig, _ = body["generationConfig"].(map[string]any)
		_, _ = w.Write([]byte(geminiBody(`{"title":"Hi","tags":["a"]}`)))
	}))
	defer server.Close()

	p, err := NewGeminiProvider("k", "gemini-2.5-flash", WithGeminiBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Attempt(context.Background(), Request{Prompt: "x", Schema: SchemaFor[script]()})
	require.NoError(t, err)

	require.NotNil(t, genConfig)
	schema, ok := genConfig["responseJsonSchema"].(map[string]any)
	require.True(t, ok, "responseJsonSchema missing: %v", genConfig)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$id")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "title")
	assert.Contains(t, props, "tags")
}

func TestGeminiProvider_OmitsSchemaWhenUnset(t *testing.T) {
	var genConfig map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		genConfig, _ = body["generationConfig"].(map[string]any)
		_, _ = w.Write([]byte(geminiBody(`{"title":"Hi"}`)))
	}))
	defer server.Close()

	p, err := NewGeminiProvider("k", "m", WithGeminiBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Attempt(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.NotContains(t, genConfig, "responseJsonSchema")
}

func TestGeminiProvider_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrRequestFailed},
		{"not found", http.StatusNotFound, ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			p, err := NewGeminiProvider("k", "m", WithGeminiBaseURL(server.URL))
			require.NoError(t, err)

			_, err = p.Attempt(context.Background(), Request{Prompt: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGeminiProvider_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider("k", "m", WithGeminiBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Attempt(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiProvider_ProseWithoutJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiBody("I'd rather not.")))
	}))
	defer server.Close()

	p, err := NewGeminiProvider("k", "m", WithGeminiBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Attempt(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestGeminiVariants_InFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/flash-preview:generateContent" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(geminiBody(`{"title":"from flash"}`)))
	}))
	defer server.Close()

	var variants []Provider
	for _, m := range []string{"flash-preview", "flash"} {
		p, err := NewGeminiProvider("k", m, WithGeminiBaseURL(server.URL))
		require.NoError(t, err)
		variants = append(variants, p)
	}

	chain, err := NewFallback("gemini", variants, nil)
	require.NoError(t, err)

	res, attempts, err := chain.GenerateTraced(context.Background(), Request{Fields: []string{"title"}})
	require.NoError(t, err)
	assert.Equal(t, "from flash", res["title"])
	require.Len(t, attempts, 2)
	assert.ErrorIs(t, attempts[0].Err, ErrRateLimited)
}
