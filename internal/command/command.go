// Package command runs external tools (ffmpeg, ffprobe, edge-tts, whisper) and
// reports non-zero exits as typed errors carrying the captured stderr.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrExternalTool is matched by every *Error returned from Run.
var ErrExternalTool = errors.New("command: external tool failed")

// Error represents a failed external tool invocation, including the stderr output.
type Error struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v\nargs: %v\nstderr: %s", e.Tool, e.Err, e.Args, e.Stderr)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrExternalTool.
func (e *Error) Is(target error) bool {
	return target == ErrExternalTool
}

// Run executes tool with args and returns its stdout.
// A non-zero exit yields *Error; a cancelled context is reported as such instead.
func Run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	// #nosec G204 - tool paths come from configuration, not user input
	cmd := exec.CommandContext(ctx, tool, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s cancelled: %w", tool, ctx.Err())
		}
		return nil, &Error{
			Tool:   tool,
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.Bytes(), nil
}
