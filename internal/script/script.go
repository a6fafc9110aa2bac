// Package script turns a topic into a narrated short: the title, script,
// description and tags package, and the per-segment stock footage queries.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/autoshorts/internal/llm"
)

// Static errors for script generation.
var (
	// ErrInvalidPackage is returned when the generated package fails validation.
	ErrInvalidPackage = errors.New("script: invalid package")
	// ErrNoQueries is returned when no usable search query was generated.
	ErrNoQueries = errors.New("script: no search queries generated")
	// ErrEmptyScript is returned when deriving queries from an empty script.
	ErrEmptyScript = errors.New("script: script is empty")
	// ErrNoGenres is returned when picking from an empty catalog.
	ErrNoGenres = errors.New("script: no genres available")
)

// DefaultDescriptionSuffix is appended to every description.
const DefaultDescriptionSuffix = "Derived from generative inference and should not be treated as empirical fact."

// Generator produces a validated JSON object for a request.
// *llm.Fallback satisfies it.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Result, error)
}

// Package is the publishable content for one short.
type Package struct {
	Title       string   `json:"title" validate:"required"`
	Script      string   `json:"script" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Tags        []string `json:"tags" validate:"min=1,dive,required"`
}

type queriesPayload struct {
	Titles []string `json:"titles"`
}

// Writer generates script packages and footage queries through a Generator.
type Writer struct {
	gen            Generator
	validate       *validator.Validate
	secondsPerClip float64
	suffix         string
	logger         *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithSecondsPerClip sets how many seconds of narration one footage clip covers.
func WithSecondsPerClip(sec float64) Option {
	return func(w *Writer) {
		if sec > 0 {
			w.secondsPerClip = sec
		}
	}
}

// WithDescriptionSuffix overrides the disclaimer appended to descriptions.
func WithDescriptionSuffix(s string) Option {
	return func(w *Writer) {
		w.suffix = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter creates a Writer backed by gen.
func NewWriter(gen Generator, opts ...Option) *Writer {
	w := &Writer{
		gen:            gen,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		secondsPerClip: 10,
		suffix:         DefaultDescriptionSuffix,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Package generates the title, script, description and tags for genre.
func (w *Writer) Package(ctx context.Context, genre string) (*Package, error) {
	req := llm.Request{
		Name:   "script",
		Prompt: buildPackagePrompt(genre),
		Fields: []string{"title", "script", "description", "tags"},
		Schema: llm.SchemaFor[Package](),
	}

	res, err := w.gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate package: %w", err)
	}

	var pkg Package
	if err := decode(res, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
	}
	pkg.Title = strings.TrimSpace(pkg.Title)
	pkg.Script = strings.TrimSpace(pkg.Script)
	pkg.Tags = cleanTags(pkg.Tags)

	if err := w.validate.Struct(pkg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
	}

	pkg.Description = AppendSuffix(pkg.Description, w.suffix)

	w.logger.Info("script package generated",
		slog.String("genre", genre),
		slog.String("title", pkg.Title),
		slog.Int("script_words", len(strings.Fields(pkg.Script))),
		slog.Int("tags", len(pkg.Tags)),
	)
	return &pkg, nil
}

// SearchQueries derives one stock footage query per narration segment.
// The segment count is ceil(audioSec / secondsPerClip), at least one.
func (w *Writer) SearchQueries(ctx context.Context, scriptText string, audioSec float64) ([]string, error) {
	words := strings.Fields(scriptText)
	if len(words) == 0 {
		return nil, ErrEmptyScript
	}

	chunks := SplitWords(words, SegmentCount(audioSec, w.secondsPerClip))

	req := llm.Request{
		Name:   "search_queries",
		Prompt: buildQueriesPrompt(chunks, scriptText),
		Fields: []string{"titles"},
		Schema: llm.SchemaFor[queriesPayload](),
	}

	res, err := w.gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate search queries: %w", err)
	}

	var payload queriesPayload
	if err := decode(res, &payload); err != nil {
		return nil, fmt.Errorf("decode search queries: %w", err)
	}

	queries := make([]string, 0, len(payload.Titles))
	for _, q := range payload.Titles {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	if len(queries) > len(chunks) {
		queries = queries[:len(chunks)]
	}

	w.logger.Info("search queries derived",
		slog.Int("segments", len(chunks)),
		slog.Int("queries", len(queries)),
	)
	return queries, nil
}

// SegmentCount returns ceil(audioSec/secondsPerClip), at least one.
func SegmentCount(audioSec, secondsPerClip float64) int {
	if secondsPerClip <= 0 || audioSec <= 0 {
		return 1
	}
	n := int(math.Ceil(audioSec / secondsPerClip))
	if n < 1 {
		return 1
	}
	return n
}

// SplitWords splits words into at most n chunks of equal size, the last one possibly shorter.
func SplitWords(words []string, n int) []string {
	if n < 1 {
		n = 1
	}
	if n > len(words) {
		n = len(words)
	}
	size := int(math.Ceil(float64(len(words)) / float64(n)))

	chunks := make([]string, 0, n)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// AppendSuffix trims trailing periods and spaces from desc and appends suffix
// as its own paragraph. An empty suffix leaves desc trimmed of whitespace only.
func AppendSuffix(desc, suffix string) string {
	desc = strings.TrimSpace(desc)
	if suffix == "" {
		return desc
	}
	return strings.TrimRight(desc, ". ") + ".\n\n" + suffix
}

// PickGenre returns a random genre from genres.
func PickGenre(genres []string, rng *rand.Rand) (string, error) {
	if len(genres) == 0 {
		return "", ErrNoGenres
	}
	if rng == nil {
		return genres[rand.IntN(len(genres))], nil
	}
	return genres[rng.IntN(len(genres))], nil
}

func decode(res llm.Result, dst any) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(t, "#"))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
