package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/autoshorts/internal/run"
)

// stubExecutor walks the run to DONE or FAILED, optionally blocking until released.
type stubExecutor struct {
	repo    run.Repository
	release chan struct{}
	err     error

	mu     sync.Mutex
	inputs []Input
}

func (s *stubExecutor) Execute(ctx context.Context, r *run.Run, in Input) (*Result, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, in)
	s.mu.Unlock()

	_ = r.TransitionTo(run.StageGenerateScript)
	_ = s.repo.Save(ctx, r)

	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			_ = r.Fail(ctx.Err())
			_ = s.repo.Save(context.WithoutCancel(ctx), r)
			return nil, &StageError{Stage: run.StageGenerateScript, Err: ctx.Err()}
		}
	}

	if s.err != nil {
		_ = r.Fail(s.err)
		_ = s.repo.Save(ctx, r)
		return nil, &StageError{Stage: run.StageGenerateScript, Err: s.err}
	}

	for _, st := range run.Stages()[1:] {
		_ = r.TransitionTo(st)
	}
	_ = r.Complete()
	_ = s.repo.Save(ctx, r)
	return &Result{RunID: r.ID, VideoID: "vid"}, nil
}

func TestService_Trigger(t *testing.T) {
	repo := run.NewMemoryRepository()
	exec := &stubExecutor{repo: repo, release: make(chan struct{})}
	svc := NewService(exec, repo)

	r, err := svc.Trigger(context.Background(), Input{Genre: "Space Mysteries"})
	require.NoError(t, err)
	assert.Equal(t, run.StagePending, r.Stage)
	assert.True(t, svc.Busy())

	_, err = svc.Trigger(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(exec.release)
	assert.Eventually(t, func() bool { return !svc.Busy() }, time.Second, 5*time.Millisecond)

	got, err := svc.GetRun(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StageDone, got.Stage)
	assert.Equal(t, []Input{{Genre: "Space Mysteries"}}, exec.inputs)

	_, err = svc.Trigger(context.Background(), Input{})
	assert.NoError(t, err, "a new run is admitted once the previous one finished")
	require.NoError(t, svc.Shutdown(context.Background()))
}

func TestService_Trigger_NotTiedToRequestContext(t *testing.T) {
	repo := run.NewMemoryRepository()
	exec := &stubExecutor{repo: repo, release: make(chan struct{})}
	svc := NewService(exec, repo)

	ctx, cancel := context.WithCancel(context.Background())
	r, err := svc.Trigger(ctx, Input{})
	require.NoError(t, err)
	cancel()

	close(exec.release)
	assert.Eventually(t, func() bool { return !svc.Busy() }, time.Second, 5*time.Millisecond)

	got, err := svc.GetRun(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StageDone, got.Stage)
}

func TestService_Shutdown_CancelsRun(t *testing.T) {
	repo := run.NewMemoryRepository()
	exec := &stubExecutor{repo: repo, release: make(chan struct{})}
	svc := NewService(exec, repo)

	r, err := svc.Trigger(context.Background(), Input{})
	require.NoError(t, err)

	require.NoError(t, svc.Shutdown(context.Background()))
	assert.False(t, svc.Busy())

	got, err := svc.GetRun(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StageFailed, got.Stage)
	assert.Contains(t, got.Error, "context canceled")
}

func TestService_RunSync(t *testing.T) {
	repo := run.NewMemoryRepository()
	svc := NewService(&stubExecutor{repo: repo}, repo)

	r, res, err := svc.RunSync(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, run.StageDone, r.Stage)
	assert.Equal(t, r.ID, res.RunID)
	assert.False(t, svc.Busy())
}

func TestService_RunSync_Failure(t *testing.T) {
	repo := run.NewMemoryRepository()
	svc := NewService(&stubExecutor{repo: repo, err: errors.New("all providers exhausted")}, repo)

	r, res, err := svc.RunSync(context.Background(), Input{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 10, ExitCode(err))
	assert.Equal(t, run.StageFailed, r.Stage)
	assert.Equal(t, run.StageGenerateScript, r.FailedStage)
}

func TestService_RunSync_WhileBusy(t *testing.T) {
	repo := run.NewMemoryRepository()
	exec := &stubExecutor{repo: repo, release: make(chan struct{})}
	svc := NewService(exec, repo)

	_, err := svc.Trigger(context.Background(), Input{})
	require.NoError(t, err)

	_, _, err = svc.RunSync(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(exec.release)
	require.NoError(t, svc.Shutdown(context.Background()))
}

func TestService_HistoryLimit(t *testing.T) {
	repo := run.NewMemoryRepository()
	svc := NewService(&stubExecutor{repo: repo}, repo, WithHistoryLimit(2))

	var last *run.Run
	for i := 0; i < 4; i++ {
		r, _, err := svc.RunSync(context.Background(), Input{})
		require.NoError(t, err)
		last = r
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := svc.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, last.ID, runs[0].ID)
}
