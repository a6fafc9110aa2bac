package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Compile-time check that Fallback composes as a Provider.
var _ Provider = (*Fallback)(nil)

// Fallback tries its providers in fixed order until one yields a JSON object
// containing every requested field. It is itself a Provider, so a list of
// model variants against one backend nests inside an outer chain.
type Fallback struct {
	name      string
	providers []Provider
	logger    *slog.Logger
}

// NewFallback creates a Fallback over providers, tried in the given order.
func NewFallback(name string, providers []Provider, logger *slog.Logger) (*Fallback, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoProviders, name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		name:      name,
		providers: providers,
		logger:    logger,
	}, nil
}

// Name returns the name of the chain.
func (f *Fallback) Name() string {
	return f.name
}

// Attempt runs the chain and returns the accepted Result as a single provider outcome.
func (f *Fallback) Attempt(ctx context.Context, req Request) (any, error) {
	res, err := f.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Generate returns the first valid Result.
func (f *Fallback) Generate(ctx context.Context, req Request) (Result, error) {
	res, _, err := f.GenerateTraced(ctx, req)
	return res, err
}

// GenerateTraced is Generate that also returns the ordered attempt records.
// When every provider fails the error is an *ExhaustedError.
func (f *Fallback) GenerateTraced(ctx context.Context, req Request) (Result, []Attempt, error) {
	attempts := make([]Attempt, 0, len(f.providers))

	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			break
		}

		f.logger.Debug("trying provider",
			slog.String("chain", f.name),
			slog.String("provider", p.Name()),
			slog.String("request", req.Name),
		)

		start := time.Now()
		v, err := p.Attempt(ctx, req)
		var res Result
		if err == nil {
			res, err = accept(v, req.Fields)
		}
		elapsed := time.Since(start)

		if err != nil {
			perr := &ProviderError{Provider: p.Name(), Err: err}
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: perr, Elapsed: elapsed})
			f.logger.Warn("provider failed",
				slog.String("chain", f.name),
				slog.String("provider", p.Name()),
				slog.String("request", req.Name),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
			continue
		}

		attempts = append(attempts, Attempt{Provider: p.Name(), Elapsed: elapsed})
		f.logger.Info("provider succeeded",
			slog.String("chain", f.name),
			slog.String("provider", p.Name()),
			slog.String("request", req.Name),
			slog.Int("attempts", len(attempts)),
		)
		return res, attempts, nil
	}

	return nil, attempts, &ExhaustedError{Attempts: attempts}
}

// accept checks that v is a JSON object holding every required field.
func accept(v any, fields []string) (Result, error) {
	switch m := v.(type) {
	case Result:
		return m, checkFields(m, fields)
	case map[string]any:
		return Result(m), checkFields(m, fields)
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotMapping, v)
	}
}

func checkFields(m map[string]any, fields []string) error {
	for _, f := range fields {
		if _, ok := m[f]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingField, f)
		}
	}
	return nil
}
