// Package llm provides structured-output generation over unreliable text
// backends. Every backend is a Provider; Fallback tries providers in order
// until one returns a JSON object with the requested fields.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Static errors for generation.
var (
	// ErrMalformedOutput is returned when no JSON payload can be extracted from model text.
	ErrMalformedOutput = errors.New("llm: malformed output")
	// ErrProviderFailure is matched by every *ProviderError.
	ErrProviderFailure = errors.New("llm: provider failure")
	// ErrAllProvidersExhausted is matched by *ExhaustedError.
	ErrAllProvidersExhausted = errors.New("llm: all providers exhausted")
	// ErrNotMapping is returned when a provider yields valid JSON that is not an object.
	ErrNotMapping = errors.New("llm: result is not a JSON object")
	// ErrMissingField is returned when a required field is absent from the result.
	ErrMissingField = errors.New("llm: required field missing")
	// ErrNoProviders is returned when a Fallback is built without providers.
	ErrNoProviders = errors.New("llm: no providers configured")
	// ErrRateLimited is returned when a backend answers 429.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrUnauthorized is returned when a backend rejects the credentials.
	ErrUnauthorized = errors.New("llm: unauthorized")
	// ErrRequestFailed is returned for any other non-2xx status.
	ErrRequestFailed = errors.New("llm: request failed")
	// ErrEmptyResponse is returned when a backend answers without any text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Request describes one structured generation.
type Request struct {
	// Name labels the request in logs (e.g. "script", "search_queries").
	Name string
	// Prompt is the full user prompt.
	Prompt string
	// Fields are the top-level keys the result must contain.
	Fields []string
	// Schema is an optional JSON schema for backends with structured-output support.
	Schema any
}

// Result is a validated JSON object returned by exactly one provider.
type Result map[string]any

// Provider is a single generation backend, or a composition of backends.
type Provider interface {
	// Name identifies the provider in attempt records and logs.
	Name() string
	// Attempt performs one generation and returns the decoded JSON payload,
	// which may have any shape.
	Attempt(ctx context.Context, req Request) (any, error)
}

// Attempt records the outcome of one provider call within a fallback round.
type Attempt struct {
	Provider string
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the attempt produced the accepted result.
func (a Attempt) OK() bool {
	return a.Err == nil
}

// ProviderError wraps a failure from one provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrProviderFailure.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderFailure
}

// ExhaustedError is returned when every provider failed. It unwraps to the last cause.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Provider)
	}
	last := e.Unwrap()
	if last == nil {
		return fmt.Sprintf("%v (tried: %s)", ErrAllProvidersExhausted, strings.Join(names, ", "))
	}
	return fmt.Sprintf("%v (tried: %s): %v", ErrAllProvidersExhausted, strings.Join(names, ", "), last)
}

// Unwrap returns the cause of the last failed attempt.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Is reports whether target is ErrAllProvidersExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// statusError maps an HTTP status from a backend to a sentinel.
func statusError(code int, body string) error {
	body = strings.TrimSpace(body)
	if len(body) > 512 {
		body = body[:512]
	}
	switch {
	case code == 429:
		return fmt.Errorf("%w: %s", ErrRateLimited, body)
	case code == 401 || code == 403:
		return fmt.Errorf("%w (status %d): %s", ErrUnauthorized, code, body)
	default:
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, code, body)
	}
}
