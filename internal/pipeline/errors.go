package pipeline

import (
	"errors"
	"fmt"

	"github.com/maauso/autoshorts/internal/run"
)

// Static errors for the pipeline.
var (
	// ErrStageFailed matches every *StageError.
	ErrStageFailed = errors.New("pipeline: stage failed")
	// ErrMissingDependency is returned when a required collaborator is nil.
	ErrMissingDependency = errors.New("pipeline: missing dependency")
	// ErrRunInProgress is returned when a run is requested while another is active.
	ErrRunInProgress = errors.New("pipeline: a run is already in progress")
)

// StageError reports which stage failed and why.
type StageError struct {
	Stage run.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStageFailed) true for any stage.
func (e *StageError) Is(target error) bool {
	return target == ErrStageFailed
}

const (
	// ExitSetup is the exit status for configuration and wiring failures.
	ExitSetup = 1
	// exitStageBase is added to the stage ordinal for stage failures.
	exitStageBase = 10
)

// ExitCode maps a run outcome to a process exit status: 0 on success,
// 10 plus the stage ordinal for a stage failure (GENERATE_SCRIPT is 10,
// UPLOAD is 18), and 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *StageError
	if errors.As(err, &se) {
		if ord := se.Stage.Ordinal(); ord >= 0 {
			return exitStageBase + ord
		}
	}
	return ExitSetup
}
