// Package media assembles the final short with ffmpeg and ffprobe.
package media

import "context"

// Canvas is the output frame every clip is fitted to.
type Canvas struct {
	Width  int
	Height int
	FPS    int
}

// DefaultCanvas is a 1080x1920 portrait frame at 30 fps.
func DefaultCanvas() Canvas {
	return Canvas{Width: 1080, Height: 1920, FPS: 30}
}

// Processor defines the media assembly operations the pipeline needs.
// Implementations report a failed tool run as *command.Error.
type Processor interface {
	// MergeVertical scales and pads every input to canvas and concatenates
	// them in order into a single silent video.
	MergeVertical(ctx context.Context, inputs []string, output string, canvas Canvas) error

	// Duration returns the duration of a media file in seconds.
	Duration(ctx context.Context, path string) (float64, error)

	// Trim applies plan to input: the video is retimed by plan.Factor and cut
	// at plan.Target seconds. Audio is dropped.
	Trim(ctx context.Context, input, output string, plan SpeedPlan) error

	// MuxAudio copies the video stream of video and adds audio as the soundtrack.
	MuxAudio(ctx context.Context, video, audio, output string) error

	// BurnSubtitles renders an ASS subtitle file onto video.
	BurnSubtitles(ctx context.Context, video, subtitles, output string) error
}
