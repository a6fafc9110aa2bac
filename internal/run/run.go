// Package run provides the Run aggregate: one end-to-end pass of the
// pipeline, moving through a linear sequence of stages.
package run

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/autoshorts/internal/run/id"
)

// Stage is the position of a run in the pipeline.
type Stage string

const (
	// StagePending indicates the run was created but has not started.
	StagePending Stage = "PENDING"
	// StageGenerateScript picks a topic and writes the script package.
	StageGenerateScript Stage = "GENERATE_SCRIPT"
	// StageSynthesizeAudio turns the script into narration.
	StageSynthesizeAudio Stage = "SYNTHESIZE_AUDIO"
	// StageDeriveSearchQueries asks the model for one stock query per segment.
	StageDeriveSearchQueries Stage = "DERIVE_SEARCH_QUERIES"
	// StageFetchMedia searches, selects and downloads one clip per query.
	StageFetchMedia Stage = "FETCH_MEDIA"
	// StageMergeMedia normalizes and concatenates the clips.
	StageMergeMedia Stage = "MERGE_MEDIA"
	// StageTrimToAudioLength retimes and cuts the video to the narration length.
	StageTrimToAudioLength Stage = "TRIM_TO_AUDIO_LENGTH"
	// StageMuxAudio lays the narration under the video.
	StageMuxAudio Stage = "MUX_AUDIO"
	// StageBurnCaptions renders word captions into the frames.
	StageBurnCaptions Stage = "BURN_CAPTIONS"
	// StageUpload publishes the final video.
	StageUpload Stage = "UPLOAD"
	// StageDone indicates every stage succeeded.
	StageDone Stage = "DONE"
	// StageFailed indicates a stage failed; FailedStage tells which.
	StageFailed Stage = "FAILED"
)

// workStages lists the stages that do work, in execution order.
var workStages = []Stage{
	StageGenerateScript,
	StageSynthesizeAudio,
	StageDeriveSearchQueries,
	StageFetchMedia,
	StageMergeMedia,
	StageTrimToAudioLength,
	StageMuxAudio,
	StageBurnCaptions,
	StageUpload,
}

// Stages returns the working stages in execution order.
func Stages() []Stage {
	return slices.Clone(workStages)
}

// Ordinal returns the zero-based position of a working stage, or -1.
func (s Stage) Ordinal() int {
	return slices.Index(workStages, s)
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("run: invalid stage transition")

// canTransition allows one step forward along the pipeline, or FAILED from
// any non-terminal stage.
func canTransition(from, to Stage) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	switch from {
	case StagePending:
		return to == workStages[0]
	case workStages[len(workStages)-1]:
		return to == StageDone
	}
	i := from.Ordinal()
	return i >= 0 && to == workStages[i+1]
}

// Run is one pass of the pipeline and everything it has produced so far.
type Run struct {
	mu sync.RWMutex

	ID    string
	Stage Stage
	// FailedStage is the stage that was executing when the run failed.
	FailedStage Stage
	// Error is the failure cause, if any.
	Error string

	Genre        string
	Title        string
	AudioSeconds float64
	Queries      int
	Clips        int
	SpeedFactor  float64
	Captions     int
	VideoID      string
	VideoURL     string
	ArchiveURL   string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a PENDING run with a generated ID.
func New() *Run {
	return NewWithID(id.Generate())
}

// NewWithID creates a PENDING run with the given ID.
func NewWithID(runID string) *Run {
	now := time.Now()
	return &Run{
		ID:        runID,
		Stage:     StagePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the run to stage.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Run) TransitionTo(stage Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(stage)
}

func (r *Run) transitionLocked(stage Stage) error {
	if !canTransition(r.Stage, stage) {
		return ErrInvalidTransition
	}

	r.Stage = stage
	r.UpdatedAt = time.Now()

	switch stage {
	case workStages[0]:
		r.StartedAt = r.UpdatedAt
	case StageDone, StageFailed:
		r.CompletedAt = r.UpdatedAt
	}
	return nil
}

// Complete moves the run from UPLOAD to DONE.
func (r *Run) Complete() error {
	return r.TransitionTo(StageDone)
}

// Fail records the current stage and cause, then moves the run to FAILED.
func (r *Run) Fail(cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from := r.Stage
	if err := r.transitionLocked(StageFailed); err != nil {
		return err
	}
	r.FailedStage = from
	if cause != nil {
		r.Error = cause.Error()
	}
	return nil
}

// GetStage returns the current stage (thread-safe).
func (r *Run) GetStage() Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Stage
}

// IsTerminal returns true if the run is DONE or FAILED.
func (r *Run) IsTerminal() bool {
	return r.GetStage().IsTerminal()
}

// Update applies fn to the run under its lock.
func (r *Run) Update(fn func(r *Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
	r.UpdatedAt = time.Now()
}

// Clone creates a copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Run{
		ID:           r.ID,
		Stage:        r.Stage,
		FailedStage:  r.FailedStage,
		Error:        r.Error,
		Genre:        r.Genre,
		Title:        r.Title,
		AudioSeconds: r.AudioSeconds,
		Queries:      r.Queries,
		Clips:        r.Clips,
		SpeedFactor:  r.SpeedFactor,
		Captions:     r.Captions,
		VideoID:      r.VideoID,
		VideoURL:     r.VideoURL,
		ArchiveURL:   r.ArchiveURL,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
}
