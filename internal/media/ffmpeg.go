package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maauso/autoshorts/internal/command"
)

// Compile-time check that FFmpegProcessor implements Processor.
var _ Processor = (*FFmpegProcessor)(nil)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the canvas is not positive.
	ErrInvalidDimensions = errors.New("media: invalid canvas: width, height and fps must be positive")
	// ErrNoVideoPaths is returned when no inputs are provided for merging.
	ErrNoVideoPaths = errors.New("media: no video paths provided")
	// ErrInvalidDuration is returned when a duration is not positive.
	ErrInvalidDuration = errors.New("media: invalid duration: must be positive")
	// ErrInvalidSpeed is returned when a speed plan has a non-positive factor.
	ErrInvalidSpeed = errors.New("media: invalid speed factor")
)

// FFmpegProcessor implements Processor using the ffmpeg and ffprobe CLIs.
type FFmpegProcessor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegProcessor(ffmpegPath, ffprobePath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// MergeVertical fits every input into canvas with black bars and concatenates them.
func (p *FFmpegProcessor) MergeVertical(ctx context.Context, inputs []string, output string, canvas Canvas) error {
	if len(inputs) == 0 {
		return ErrNoVideoPaths
	}
	if canvas.Width <= 0 || canvas.Height <= 0 || canvas.FPS <= 0 {
		return ErrInvalidDimensions
	}

	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", buildMergeFilter(len(inputs), canvas),
		"-map", "[outv]",
		"-pix_fmt", "yuv420p",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-an",
		output,
	)
	return p.runFFmpeg(ctx, args)
}

// buildMergeFilter builds the filter graph that normalizes n inputs and concatenates them.
func buildMergeFilter(n int, c Canvas) string {
	parts := make([]string, 0, n+1)
	var labels strings.Builder
	for i := range n {
		parts = append(parts, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,fps=%d,setsar=1[v%d]",
			i, c.Width, c.Height, c.Width, c.Height, c.FPS, i,
		))
		fmt.Fprintf(&labels, "[v%d]", i)
	}
	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[outv]", labels.String(), n))
	return strings.Join(parts, ";")
}

// Duration returns the duration in seconds of a media file using ffprobe.
func (p *FFmpegProcessor) Duration(ctx context.Context, path string) (float64, error) {
	out, err := command.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, err
	}
	return parseProbeDuration(out)
}

func parseProbeDuration(out []byte) (float64, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
	}
	if d <= 0 {
		return 0, ErrInvalidDuration
	}
	return d, nil
}

// Trim retimes input by plan.Factor and cuts it at plan.Target seconds.
func (p *FFmpegProcessor) Trim(ctx context.Context, input, output string, plan SpeedPlan) error {
	if plan.Factor <= 0 {
		return ErrInvalidSpeed
	}
	if plan.Target <= 0 {
		return ErrInvalidDuration
	}
	return p.runFFmpeg(ctx, []string{
		"-y",
		"-i", input,
		"-filter:v", TrimFilter(plan),
		"-an",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		output,
	})
}

// TrimFilter renders the video filter for plan.
func TrimFilter(plan SpeedPlan) string {
	return fmt.Sprintf("setpts=%.4f*PTS,trim=0:%.3f,setpts=PTS-STARTPTS", plan.Factor, plan.Target)
}

// MuxAudio keeps the video stream of video and encodes audio as MP3 alongside it.
func (p *FFmpegProcessor) MuxAudio(ctx context.Context, video, audio, output string) error {
	return p.runFFmpeg(ctx, []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		"-ar", "48000",
		"-ac", "2",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		"-movflags", "+faststart",
		output,
	})
}

// BurnSubtitles renders the ASS file onto video and copies the audio through.
func (p *FFmpegProcessor) BurnSubtitles(ctx context.Context, video, subtitles, output string) error {
	return p.runFFmpeg(ctx, []string{
		"-y",
		"-i", video,
		"-vf", "ass=" + escapeFilterPath(subtitles),
		"-c:a", "copy",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		output,
	})
}

// escapeFilterPath quotes a path for use as a filter argument.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	return path
}

// runFFmpeg executes ffmpeg with the given arguments.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	_, err := command.Run(ctx, p.ffmpegPath, args...)
	return err
}
