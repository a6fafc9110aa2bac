package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	fence   = "```"
	jsonTag = "json"
)

var objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// ExtractJSON pulls the JSON payload out of raw model text.
//
// Fenced output (```json ... ```) is unwrapped to its first block. If the
// cleaned text does not parse, the outermost {...} span of the original text
// is tried instead. The decoded value may be of any JSON type.
func ExtractJSON(text string) (any, error) {
	cleaned := stripFence(text)

	var v any
	err := json.Unmarshal([]byte(cleaned), &v)
	if err == nil {
		return v, nil
	}

	match := objectPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON object found: %w", ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(match), &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	return v, nil
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, fence) {
		return text
	}
	parts := strings.Split(text, fence)
	if len(parts) >= 2 {
		text = parts[1]
	}
	text = strings.TrimSpace(text)
	if len(text) >= len(jsonTag) && strings.EqualFold(text[:len(jsonTag)], jsonTag) {
		text = text[len(jsonTag):]
	}
	return strings.TrimSpace(text)
}
