package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	defaultChunkWords  = 500
	defaultConcurrency = 3
)

var quoteReplacer = strings.NewReplacer("``", `"`, "''", `"`)

// ChunkedSynthesizer synthesizes long text in fixed-size word chunks.
type ChunkedSynthesizer struct {
	tts         Synthesizer
	voice       string
	chunkWords  int
	concurrency int
	logger      *slog.Logger
}

// ChunkedOption configures a ChunkedSynthesizer.
type ChunkedOption func(*ChunkedSynthesizer)

// WithChunkWords sets the number of words per chunk.
func WithChunkWords(n int) ChunkedOption {
	return func(c *ChunkedSynthesizer) {
		if n > 0 {
			c.chunkWords = n
		}
	}
}

// WithConcurrency bounds how many chunks are synthesized at once.
func WithConcurrency(n int) ChunkedOption {
	return func(c *ChunkedSynthesizer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ChunkedOption {
	return func(c *ChunkedSynthesizer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChunkedSynthesizer creates a ChunkedSynthesizer over tts using voice.
func NewChunkedSynthesizer(tts Synthesizer, voice string, opts ...ChunkedOption) *ChunkedSynthesizer {
	c := &ChunkedSynthesizer{
		tts:         tts,
		voice:       voice,
		chunkWords:  defaultChunkWords,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize writes the narration for text to output.
// Chunks may finish in any order but are appended in text order. If any
// chunk fails, output is not left behind. Chunk files are always removed.
func (c *ChunkedSynthesizer) Synthesize(ctx context.Context, text, output string) (err error) {
	chunks := SplitChunks(NormalizeQuotes(text), c.chunkWords)
	if len(chunks) == 0 {
		return ErrEmptyText
	}

	dir := filepath.Dir(output)
	parts := make([]string, len(chunks))
	for i := range chunks {
		parts[i] = filepath.Join(dir, fmt.Sprintf("tts_chunk_%03d.mp3", i))
	}
	defer func() {
		for _, p := range parts {
			if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				c.logger.Warn("failed to remove chunk", slog.String("path", p), slog.String("error", rmErr.Error()))
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := c.tts.Synthesize(gctx, chunk, c.voice, parts[i]); err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = os.Remove(output)
		}
	}()
	if err := concatFiles(output, parts); err != nil {
		return err
	}

	c.logger.Info("narration synthesized",
		slog.String("output", output),
		slog.Int("chunks", len(chunks)),
		slog.String("voice", c.voice),
	)
	return nil
}

// NormalizeQuotes replaces LaTeX-style `` and '' quotes with plain double quotes.
func NormalizeQuotes(text string) string {
	return quoteReplacer.Replace(text)
}

// SplitChunks groups the words of text into chunks of at most size words.
func SplitChunks(text string, size int) []string {
	words := strings.Fields(text)
	if size <= 0 {
		size = defaultChunkWords
	}
	var chunks []string
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// concatFiles binary-appends parts, in order, into output.
func concatFiles(output string, parts []string) error {
	out, err := os.Create(output) // #nosec G304 - path is built by the pipeline
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}

	for _, p := range parts {
		if err := appendFile(out, p); err != nil {
			_ = out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", output, err)
	}
	return nil
}

func appendFile(dst io.Writer, path string) error {
	f, err := os.Open(path) // #nosec G304 - path is built by the pipeline
	if err != nil {
		return fmt.Errorf("open chunk: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("append chunk %s: %w", path, err)
	}
	return nil
}
