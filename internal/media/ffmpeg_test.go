package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maauso/autoshorts/internal/command"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found in PATH, skipping test", tool)
		}
	}
}

// createTestVideo creates a silent solid color video using ffmpeg.
func createTestVideo(t *testing.T, path string, duration float64, color string, w, h int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%.2f:r=30", color, w, h, duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

// createTestAudio creates a sine tone using ffmpeg.
func createTestAudio(t *testing.T, path string, duration float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("sine=frequency=440:duration=%.2f", duration),
		"-c:a", "libmp3lame",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test audio: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegProcessor(t *testing.T) {
	t.Run("default paths", func(t *testing.T) {
		p := NewFFmpegProcessor("", "")
		if p.ffmpegPath != "ffmpeg" || p.ffprobePath != "ffprobe" {
			t.Errorf("expected default paths, got %q and %q", p.ffmpegPath, p.ffprobePath)
		}
	})

	t.Run("custom paths", func(t *testing.T) {
		p := NewFFmpegProcessor("/usr/local/bin/ffmpeg", "/usr/local/bin/ffprobe")
		if p.ffmpegPath != "/usr/local/bin/ffmpeg" || p.ffprobePath != "/usr/local/bin/ffprobe" {
			t.Errorf("expected custom paths, got %q and %q", p.ffmpegPath, p.ffprobePath)
		}
	})
}

func TestBuildMergeFilter(t *testing.T) {
	got := buildMergeFilter(2, Canvas{Width: 1080, Height: 1920, FPS: 30})
	want := "[0:v]scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2,fps=30,setsar=1[v0];" +
		"[1:v]scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2,fps=30,setsar=1[v1];" +
		"[v0][v1]concat=n=2:v=1:a=0[outv]"
	if got != want {
		t.Errorf("unexpected filter:\n got %s\nwant %s", got, want)
	}
}

func TestTrimFilter(t *testing.T) {
	got := TrimFilter(SpeedPlan{Factor: 1.2, Target: 45.5})
	want := "setpts=1.2000*PTS,trim=0:45.500,setpts=PTS-STARTPTS"
	if got != want {
		t.Errorf("TrimFilter() = %q, want %q", got, want)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	tests := map[string]string{
		"/tmp/run/captions.ass":  "/tmp/run/captions.ass",
		`C:\runs\captions.ass`:   `C\:/runs/captions.ass`,
		"/tmp/it's/captions.ass": `/tmp/it\'s/captions.ass`,
	}
	for in, want := range tests {
		if got := escapeFilterPath(in); got != want {
			t.Errorf("escapeFilterPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseProbeDuration(t *testing.T) {
	d, err := parseProbeDuration([]byte(`{"format": {"duration": "12.480000"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 12.48 {
		t.Errorf("expected 12.48, got %v", d)
	}

	if _, err := parseProbeDuration([]byte(`{"format": {}}`)); err == nil {
		t.Error("expected error for missing duration")
	}
	if _, err := parseProbeDuration([]byte(`{"format": {"duration": "0"}}`)); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := parseProbeDuration([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestMergeVertical_Validation(t *testing.T) {
	p := NewFFmpegProcessor("", "")
	ctx := context.Background()

	if err := p.MergeVertical(ctx, nil, "out.mp4", DefaultCanvas()); !errors.Is(err, ErrNoVideoPaths) {
		t.Errorf("expected ErrNoVideoPaths, got %v", err)
	}
	if err := p.MergeVertical(ctx, []string{"a.mp4"}, "out.mp4", Canvas{Width: 1080}); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestTrim_Validation(t *testing.T) {
	p := NewFFmpegProcessor("", "")
	ctx := context.Background()

	if err := p.Trim(ctx, "in.mp4", "out.mp4", SpeedPlan{Factor: 0, Target: 10}); !errors.Is(err, ErrInvalidSpeed) {
		t.Errorf("expected ErrInvalidSpeed, got %v", err)
	}
	if err := p.Trim(ctx, "in.mp4", "out.mp4", SpeedPlan{Factor: 1, Target: 0}); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestPipelineSteps(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	p := NewFFmpegProcessor("", "")
	ctx := context.Background()
	canvas := Canvas{Width: 90, Height: 160, FPS: 30}

	landscape := filepath.Join(tmpDir, "landscape.mp4")
	portrait := filepath.Join(tmpDir, "portrait.mp4")
	createTestVideo(t, landscape, 1.0, "red", 160, 90)
	createTestVideo(t, portrait, 1.0, "blue", 90, 160)

	merged := filepath.Join(tmpDir, "merged.mp4")
	if err := p.MergeVertical(ctx, []string{landscape, portrait}, merged, canvas); err != nil {
		t.Fatalf("MergeVertical failed: %v", err)
	}

	videoSec, err := p.Duration(ctx, merged)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if videoSec < 1.8 || videoSec > 2.2 {
		t.Errorf("expected merged duration ~2.0s, got %.2f", videoSec)
	}

	narration := filepath.Join(tmpDir, "narration.mp3")
	createTestAudio(t, narration, 2.3)
	audioSec, err := p.Duration(ctx, narration)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}

	plan := PlanSpeed(videoSec, audioSec)
	if plan.Factor != 1.2 {
		t.Errorf("expected factor 1.2 for %.2fs video and %.2fs audio, got %v", videoSec, audioSec, plan.Factor)
	}

	trimmed := filepath.Join(tmpDir, "trimmed.mp4")
	if err := p.Trim(ctx, merged, trimmed, plan); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	trimmedSec, err := p.Duration(ctx, trimmed)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if trimmedSec < audioSec-0.2 || trimmedSec > audioSec+0.2 {
		t.Errorf("expected trimmed duration ~%.2fs, got %.2f", audioSec, trimmedSec)
	}

	withAudio := filepath.Join(tmpDir, "with_audio.mp4")
	if err := p.MuxAudio(ctx, trimmed, narration, withAudio); err != nil {
		t.Fatalf("MuxAudio failed: %v", err)
	}
	if info, err := os.Stat(withAudio); err != nil || info.Size() == 0 {
		t.Errorf("expected non-empty muxed output, err=%v", err)
	}
}

func TestMergeVertical_MissingInput(t *testing.T) {
	skipIfNoFFmpeg(t)

	p := NewFFmpegProcessor("", "")
	err := p.MergeVertical(context.Background(), []string{"/nonexistent/video.mp4"},
		filepath.Join(t.TempDir(), "out.mp4"), DefaultCanvas())
	if err == nil {
		t.Fatal("expected error for non-existent input, got nil")
	}

	var cmdErr *command.Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *command.Error, got %T", err)
	}
	if !errors.Is(err, command.ErrExternalTool) {
		t.Error("expected error to match command.ErrExternalTool")
	}
	if !strings.Contains(cmdErr.Stderr, "nonexistent") {
		t.Errorf("expected stderr to mention the input, got %q", cmdErr.Stderr)
	}
}

func TestDuration_Cancelled(t *testing.T) {
	skipIfNoFFmpeg(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFFmpegProcessor("", "").Duration(ctx, "whatever.mp4"); err == nil {
		t.Error("expected error for cancelled context, got nil")
	}
}
