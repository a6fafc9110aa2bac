package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/maauso/autoshorts/internal/run"
)

const defaultHistoryLimit = 50

// Executor runs one pipeline pass for r. *Driver satisfies it.
type Executor interface {
	Execute(ctx context.Context, r *run.Run, in Input) (*Result, error)
}

// Service admits one run at a time and keeps a bounded history of run records.
type Service struct {
	exec   Executor
	repo   run.Repository
	logger *slog.Logger

	busy         atomic.Bool
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	historyLimit int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHistoryLimit bounds how many finished runs are kept.
func WithHistoryLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service. repo should be the repository the executor saves to.
func NewService(exec Executor, repo run.Repository, opts ...ServiceOption) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		exec:         exec,
		repo:         repo,
		logger:       slog.Default(),
		ctx:          ctx,
		cancel:       cancel,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger starts a run in the background and returns its initial record.
// It returns ErrRunInProgress while another run is active. The run is not
// tied to ctx; Shutdown cancels it.
func (s *Service) Trigger(ctx context.Context, in Input) (*run.Run, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}

	r := run.New()
	if err := s.repo.Save(ctx, r); err != nil {
		s.busy.Store(false)
		return nil, err
	}

	s.logger.Info("run triggered",
		slog.String("run_id", r.ID),
		slog.String("genre", in.Genre),
	)

	snapshot := r.Clone()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		_, _ = s.execute(s.ctx, r, in)
	}()
	return snapshot, nil
}

// RunSync executes a run in the caller's goroutine and returns its outcome.
func (s *Service) RunSync(ctx context.Context, in Input) (*run.Run, *Result, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, nil, ErrRunInProgress
	}
	defer s.busy.Store(false)

	r := run.New()
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, nil, err
	}

	res, err := s.execute(ctx, r, in)
	return r.Clone(), res, err
}

func (s *Service) execute(ctx context.Context, r *run.Run, in Input) (*Result, error) {
	res, err := s.exec.Execute(ctx, r, in)
	if err != nil {
		s.logger.Error("run failed",
			slog.String("run_id", r.ID),
			slog.String("stage", string(r.Clone().FailedStage)),
			slog.Int("exit_code", ExitCode(err)),
			slog.String("error", err.Error()),
		)
	}
	s.prune(context.WithoutCancel(ctx))
	return res, err
}

// prune drops the oldest terminal runs beyond the history limit.
func (s *Service) prune(ctx context.Context) {
	runs, err := s.repo.List(ctx)
	if err != nil || len(runs) <= s.historyLimit {
		return
	}
	for _, r := range runs[s.historyLimit:] {
		if !r.IsTerminal() {
			continue
		}
		if err := s.repo.Delete(ctx, r.ID); err != nil {
			s.logger.Warn("failed to prune run", slog.String("run_id", r.ID), slog.String("error", err.Error()))
		}
	}
}

// Busy reports whether a run is active.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

// GetRun returns a run by ID.
func (s *Service) GetRun(ctx context.Context, id string) (*run.Run, error) {
	return s.repo.FindByID(ctx, id)
}

// ListRuns returns all known runs, newest first.
func (s *Service) ListRuns(ctx context.Context) ([]*run.Run, error) {
	return s.repo.List(ctx)
}

// Shutdown cancels a background run and waits for it to finish cleanup,
// or for ctx to be done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
