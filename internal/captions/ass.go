package captions

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Style holds the few knobs of the caption style that vary between canvases.
type Style struct {
	PlayResX int
	PlayResY int
	Font     string
	FontSize int
}

// DefaultStyle is bold, centered white text for a 1080x1920 canvas.
func DefaultStyle() Style {
	return Style{PlayResX: 1080, PlayResY: 1920, Font: "Arial Black", FontSize: 80}
}

const assHeader = `[Script Info]
Title: Word Captions
ScriptType: v4.00+
WrapStyle: 0
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,4,0,5,10,10,80,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// WriteASS renders one Dialogue event per word to w and returns the number of events.
func WriteASS(w io.Writer, words []Word, style Style) (int, error) {
	if _, err := fmt.Fprintf(w, assHeader, style.PlayResX, style.PlayResY, style.Font, style.FontSize); err != nil {
		return 0, err
	}

	n := 0
	for _, word := range words {
		text := escapeText(strings.TrimSpace(word.Text))
		if text == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			FormatTime(word.Start), FormatTime(word.End), text); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// WriteASSFile renders words to path.
func WriteASSFile(path string, words []Word, style Style) (int, error) {
	f, err := os.Create(path) // #nosec G304 - path is built by the pipeline
	if err != nil {
		return 0, fmt.Errorf("create subtitle file: %w", err)
	}
	n, err := WriteASS(f, words, style)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("write subtitle file: %w", err)
	}
	return n, nil
}

// FormatTime renders seconds as H:MM:SS.cc, truncating to centiseconds.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(math.Floor(seconds*100 + 1e-6))
	cs := total % 100
	secs := (total / 100) % 60
	mins := (total / 6000) % 60
	hours := total / 360000
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, mins, secs, cs)
}

// escapeText keeps a word from breaking the event line or opening an override block.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return s
}
