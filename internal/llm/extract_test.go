package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{
			name:  "plain object",
			input: `{"a":1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "surrounding whitespace",
			input: "\n\t  {\"a\":1}  \n",
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "json fence",
			input: "```json\n{\"a\":1}\n```",
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "uppercase json fence",
			input: "```JSON\n{\"a\":1}\n```",
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "bare fence",
			input: "```\n{\"a\":1}\n```",
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "fence followed by prose",
			input: "```json\n{\"a\":1}\n```\nHope this helps!",
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "prose around object",
			input: `Sure, here it is: {"a":1} let me know if you need more.`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "nested object in prose",
			input: `Output: {"a":{"b":[1,2]}} done`,
			want:  map[string]any{"a": map[string]any{"b": []any{float64(1), float64(2)}}},
		},
		{
			name:  "array passes through",
			input: "```json\n[1,2,3]\n```",
			want:  []any{float64(1), float64(2), float64(3)},
		},
		{
			name:  "string value passes through",
			input: `"just a string"`,
			want:  "just a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no braces", "I cannot help with that request."},
		{"empty", ""},
		{"broken object", `here: {"a": 1,,}`},
		{"fenced garbage", "```json\nnot json\n```"},
		// The brace scan is greedy: two objects in prose span into one invalid match.
		{"two objects in prose", `x {"a":1} y {"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractJSON(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("  {\"a\":1}  "))
	assert.Equal(t, `{"json":true}`, stripFence("```\n{\"json\":true}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```JSON\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```Json\n{\"a\":1}\n```"))
}
