// Package audio synthesizes narration. Long scripts are split into word
// chunks that are synthesized concurrently and joined in their original order.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/maauso/autoshorts/internal/command"
)

// ErrEmptyText is returned when there is nothing to synthesize.
var ErrEmptyText = errors.New("audio: text is empty")

// Synthesizer turns text into one audio file.
type Synthesizer interface {
	// Synthesize writes the spoken text to output using voice.
	Synthesize(ctx context.Context, text, voice, output string) error
}

// Compile-time check that EdgeTTS implements Synthesizer.
var _ Synthesizer = (*EdgeTTS)(nil)

// EdgeTTS drives the edge-tts command line tool.
type EdgeTTS struct {
	path string
}

// NewEdgeTTS creates an EdgeTTS adapter.
// If path is empty, it defaults to "edge-tts" (found in PATH).
func NewEdgeTTS(path string) *EdgeTTS {
	if path == "" {
		path = "edge-tts"
	}
	return &EdgeTTS{path: path}
}

// Synthesize runs edge-tts and checks that it produced a non-empty file.
func (e *EdgeTTS) Synthesize(ctx context.Context, text, voice, output string) error {
	if text == "" {
		return ErrEmptyText
	}
	if _, err := command.Run(ctx, e.path,
		"--voice", voice,
		"--text", text,
		"--write-media", output,
	); err != nil {
		return err
	}

	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("edge-tts output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("edge-tts output %s is empty", output)
	}
	return nil
}
