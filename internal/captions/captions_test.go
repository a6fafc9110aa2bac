package captions

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/autoshorts/internal/command"
)

const whisperJSON = `{
  "text": " Your brain lies.",
  "language": "en",
  "segments": [
    {"id": 0, "start": 0.0, "end": 1.2, "text": " Your brain lies.",
     "words": [
       {"word": " Your", "start": 0.0, "end": 0.32, "probability": 0.98},
       {"word": " brain", "start": 0.32, "end": 0.71, "probability": 0.99},
       {"word": "  ", "start": 0.71, "end": 0.72, "probability": 0.1},
       {"word": " lies.", "start": 0.72, "end": 1.2, "probability": 0.97}
     ]}
  ]
}`

func TestParseTranscript(t *testing.T) {
	tr, err := parseTranscript([]byte(whisperJSON))
	require.NoError(t, err)
	assert.Equal(t, "en", tr.Language)

	words := tr.Words()
	require.Len(t, words, 3)
	assert.Equal(t, Word{Text: "Your", Start: 0, End: 0.32}, words[0])
	assert.Equal(t, "lies.", words[2].Text)
}

func TestParseTranscript_NoWords(t *testing.T) {
	_, err := parseTranscript([]byte(`{"segments": [{"words": []}]}`))
	assert.ErrorIs(t, err, ErrNoWords)

	_, err = parseTranscript([]byte(`nope`))
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00.00"},
		{0.32, "0:00:00.32"},
		{1.999, "0:00:01.99"},
		{61.5, "0:01:01.50"},
		{3725.07, "1:02:05.07"},
		{-1, "0:00:00.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.in), "seconds %v", tt.in)
	}
}

func TestWriteASS(t *testing.T) {
	var buf bytes.Buffer
	words := []Word{
		{Text: "Your", Start: 0, End: 0.32},
		{Text: " ", Start: 0.32, End: 0.33},
		{Text: "{brain}", Start: 0.33, End: 0.71},
	}

	n, err := WriteASS(&buf, words, DefaultStyle())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[Script Info]\n"))
	assert.Contains(t, out, "PlayResX: 1080\nPlayResY: 1920\n")
	assert.Contains(t, out, "Style: Default,Arial Black,80,")
	assert.True(t, strings.HasSuffix(out,
		"Dialogue: 0,0:00:00.00,0:00:00.32,Default,,0,0,0,,Your\n"+
			"Dialogue: 0,0:00:00.33,0:00:00.71,Default,,0,0,0,,(brain)\n"))
}

func TestWriteASSFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.ass")
	n, err := WriteASSFile(path, []Word{{Text: "hi", Start: 0, End: 1}}, DefaultStyle())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), ",,hi\n")
}

// fakeWhisper writes a script that drops fixture JSON where whisper would.
func fakeWhisper(t *testing.T, fixture string, exitCode int) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping test")
	}
	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "fixture.json")
	require.NoError(t, os.WriteFile(fixturePath, []byte(fixture), 0o600))

	script := fmt.Sprintf(`#!/bin/sh
audio="$1"; shift
while [ $# -gt 0 ]; do
  case "$1" in
    --output_dir) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
if [ %d -ne 0 ]; then echo "model not found" >&2; exit %d; fi
base=$(basename "$audio"); base="${base%%.*}"
cp %q "$out/$base.json"
`, exitCode, exitCode, fixturePath)

	path := filepath.Join(dir, "whisper")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))
	return path
}

func TestWhisper_Transcribe(t *testing.T) {
	workDir := t.TempDir()
	w := NewWhisper(fakeWhisper(t, whisperJSON, 0), "", "")

	tr, err := w.Transcribe(context.Background(), "/runs/r1/narration.mp3", workDir)
	require.NoError(t, err)
	assert.Len(t, tr.Words(), 3)
}

func TestWhisper_Failure(t *testing.T) {
	w := NewWhisper(fakeWhisper(t, whisperJSON, 2), "", "")

	_, err := w.Transcribe(context.Background(), "narration.mp3", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, command.ErrExternalTool)
	assert.Contains(t, err.Error(), "model not found")
}

func TestNewWhisper_Defaults(t *testing.T) {
	w := NewWhisper("", "", "")
	assert.Equal(t, "whisper", w.path)
	assert.Equal(t, "base", w.model)
	assert.Equal(t, "en", w.language)
}
