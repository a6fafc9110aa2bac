// Package captions produces word-by-word captions: a speech-to-text pass
// with word timestamps, rendered as one ASS dialogue event per word.
package captions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/autoshorts/internal/command"
)

// ErrNoWords is returned when a transcript carries no timed words.
var ErrNoWords = errors.New("captions: transcript has no words")

// Word is one spoken word with its start and end time in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a span of speech as reported by the transcriber.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words"`
}

// Transcript is a word-timestamped transcription.
type Transcript struct {
	Language string    `json:"language"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Words flattens all segments into a single ordered word list, skipping blanks.
func (t *Transcript) Words() []Word {
	var out []Word
	for _, s := range t.Segments {
		for _, w := range s.Words {
			w.Text = strings.TrimSpace(w.Text)
			if w.Text == "" {
				continue
			}
			out = append(out, w)
		}
	}
	return out
}

// Transcriber turns an audio file into a word-timestamped transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, workDir string) (*Transcript, error)
}

// Compile-time check that Whisper implements Transcriber.
var _ Transcriber = (*Whisper)(nil)

// Whisper drives the openai-whisper command line tool.
type Whisper struct {
	path     string
	model    string
	language string
}

// NewWhisper creates a Whisper adapter. Empty values default to
// "whisper", model "base" and language "en".
func NewWhisper(path, model, language string) *Whisper {
	if path == "" {
		path = "whisper"
	}
	if model == "" {
		model = "base"
	}
	if language == "" {
		language = "en"
	}
	return &Whisper{path: path, model: model, language: language}
}

// Transcribe runs whisper with word timestamps and reads the JSON it writes to workDir.
func (w *Whisper) Transcribe(ctx context.Context, audioPath, workDir string) (*Transcript, error) {
	if _, err := command.Run(ctx, w.path,
		audioPath,
		"--model", w.model,
		"--language", w.language,
		"--word_timestamps", "True",
		"--output_format", "json",
		"--output_dir", workDir,
	); err != nil {
		return nil, err
	}

	// Whisper names its output after the input file.
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	out := filepath.Join(workDir, base+".json")

	data, err := os.ReadFile(out) // #nosec G304 - path is derived from the pipeline workspace
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	return parseTranscript(data)
}

func parseTranscript(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	if len(t.Words()) == 0 {
		return nil, ErrNoWords
	}
	return &t, nil
}
