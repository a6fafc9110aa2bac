// Package pipeline runs the end-to-end short production: script, narration,
// footage, assembly, captions and upload, one stage after another.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/autoshorts/internal/captions"
	"github.com/maauso/autoshorts/internal/media"
	"github.com/maauso/autoshorts/internal/run"
	"github.com/maauso/autoshorts/internal/script"
	"github.com/maauso/autoshorts/internal/stock"
	"github.com/maauso/autoshorts/internal/storage"
	"github.com/maauso/autoshorts/internal/upload"
)

// ScriptWriter produces the script package and the footage queries.
// *script.Writer satisfies it.
type ScriptWriter interface {
	Package(ctx context.Context, genre string) (*script.Package, error)
	SearchQueries(ctx context.Context, scriptText string, audioSec float64) ([]string, error)
}

// Narrator writes the narration for text to output.
// *audio.ChunkedSynthesizer satisfies it.
type Narrator interface {
	Synthesize(ctx context.Context, text, output string) error
}

// MediaFetcher downloads one clip per query into sink.
// *stock.Fetcher satisfies it.
type MediaFetcher interface {
	Fetch(ctx context.Context, queries []string, sink stock.Sink) ([]string, error)
}

// Workspace is the per-run working directory.
type Workspace interface {
	storage.Workspace
	// Remove deletes the workspace directory itself.
	Remove() error
}

// WorkspaceFactory creates the workspace for a run.
type WorkspaceFactory func(runID string) (Workspace, error)

// Deps are the collaborators every run needs.
type Deps struct {
	Writer      ScriptWriter
	Narrator    Narrator
	Fetcher     MediaFetcher
	Media       media.Processor
	Transcriber captions.Transcriber
	Uploader    upload.Uploader
	Workspaces  WorkspaceFactory
}

func (d Deps) validate() error {
	var missing []string
	if d.Writer == nil {
		missing = append(missing, "writer")
	}
	if d.Narrator == nil {
		missing = append(missing, "narrator")
	}
	if d.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if d.Media == nil {
		missing = append(missing, "media")
	}
	if d.Transcriber == nil {
		missing = append(missing, "transcriber")
	}
	if d.Uploader == nil {
		missing = append(missing, "uploader")
	}
	if d.Workspaces == nil {
		missing = append(missing, "workspaces")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}
	return nil
}

// Input selects what a run produces.
type Input struct {
	// Genre is used as-is when set; otherwise one is picked from the catalog.
	Genre string
	// Privacy overrides the uploader's default privacy status.
	Privacy string
}

// Result summarizes a successful run.
type Result struct {
	RunID        string
	Genre        string
	Title        string
	VideoID      string
	VideoURL     string
	ArchiveURL   string
	AudioSeconds float64
	Clips        int
	SpeedFactor  float64
}

// Driver executes the stages of a run in order. It never retries: the
// first failing stage ends the run.
type Driver struct {
	deps     Deps
	repo     run.Repository
	archiver storage.Archiver
	genres   []string
	rng      *rand.Rand
	canvas   media.Canvas
	style    captions.Style
	logger   *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithRepository saves the run record after every transition.
func WithRepository(repo run.Repository) Option {
	return func(d *Driver) {
		d.repo = repo
	}
}

// WithArchiver copies the final video to an archive before cleanup.
func WithArchiver(a storage.Archiver) Option {
	return func(d *Driver) {
		d.archiver = a
	}
}

// WithGenres sets the catalog a genre is picked from when Input.Genre is empty.
func WithGenres(genres []string) Option {
	return func(d *Driver) {
		d.genres = genres
	}
}

// WithRand sets the random source used to pick genres.
func WithRand(rng *rand.Rand) Option {
	return func(d *Driver) {
		d.rng = rng
	}
}

// WithCanvas sets the output frame.
func WithCanvas(c media.Canvas) Option {
	return func(d *Driver) {
		d.canvas = c
	}
}

// WithCaptionStyle sets the caption style.
func WithCaptionStyle(s captions.Style) Option {
	return func(d *Driver) {
		d.style = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDriver returns ErrMissingDependency if any of deps is nil.
func NewDriver(deps Deps, opts ...Option) (*Driver, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		deps:   deps,
		canvas: media.DefaultCanvas(),
		style:  captions.DefaultStyle(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// state carries the artifacts of one run between stages.
type state struct {
	in        Input
	ws        Workspace
	genre     string
	pkg       *script.Package
	narration string
	audioSec  float64
	queries   []string
	clips     []string
	merged    string
	trimmed   string
	muxed     string
	final     string
	video     upload.Result
	archive   string
	speed     float64
	tracked   []string
}

func (s *state) track(paths ...string) {
	s.tracked = append(s.tracked, paths...)
}

type stageFunc func(ctx context.Context, r *run.Run, s *state) error

// Execute runs every stage of r in order. On the first failure r moves to
// FAILED and a *StageError is returned. The run workspace is removed on
// every exit path; cleanup failures are logged only.
func (d *Driver) Execute(ctx context.Context, r *run.Run, in Input) (*Result, error) {
	logger := d.logger.With(slog.String("run_id", r.ID))

	ws, err := d.deps.Workspaces(r.ID)
	if err != nil {
		err = fmt.Errorf("create workspace: %w", err)
		d.fail(ctx, r, err)
		return nil, err
	}

	s := &state{in: in, ws: ws}
	defer d.cleanup(ctx, logger, s)

	stages := []struct {
		stage run.Stage
		fn    stageFunc
	}{
		{run.StageGenerateScript, d.generateScript},
		{run.StageSynthesizeAudio, d.synthesizeAudio},
		{run.StageDeriveSearchQueries, d.deriveQueries},
		{run.StageFetchMedia, d.fetchMedia},
		{run.StageMergeMedia, d.mergeMedia},
		{run.StageTrimToAudioLength, d.trimToAudio},
		{run.StageMuxAudio, d.muxAudio},
		{run.StageBurnCaptions, d.burnCaptions},
		{run.StageUpload, d.upload},
	}

	started := time.Now()
	for _, st := range stages {
		if err := d.step(ctx, logger, r, s, st.stage, st.fn); err != nil {
			return nil, err
		}
	}

	if err := r.Complete(); err != nil {
		return nil, err
	}
	d.save(ctx, r)

	res := &Result{
		RunID:        r.ID,
		Genre:        s.genre,
		Title:        s.pkg.Title,
		VideoID:      s.video.VideoID,
		VideoURL:     s.video.URL,
		ArchiveURL:   s.archive,
		AudioSeconds: s.audioSec,
		Clips:        len(s.clips),
		SpeedFactor:  s.speed,
	}
	logger.Info("run completed",
		slog.String("title", res.Title),
		slog.String("video_id", res.VideoID),
		slog.String("url", res.VideoURL),
		slog.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

func (d *Driver) step(ctx context.Context, logger *slog.Logger, r *run.Run, s *state, stage run.Stage, fn stageFunc) error {
	if err := r.TransitionTo(stage); err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	d.save(ctx, r)

	logger.Info("stage started", slog.String("stage", string(stage)))
	start := time.Now()

	err := ctx.Err()
	if err == nil {
		err = fn(ctx, r, s)
	}
	if err != nil {
		logger.Error("stage failed",
			slog.String("stage", string(stage)),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		d.fail(ctx, r, err)
		return &StageError{Stage: stage, Err: err}
	}

	logger.Info("stage finished",
		slog.String("stage", string(stage)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (d *Driver) fail(ctx context.Context, r *run.Run, cause error) {
	if err := r.Fail(cause); err != nil {
		d.logger.Warn("could not mark run failed",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	d.save(ctx, r)
}

func (d *Driver) save(ctx context.Context, r *run.Run) {
	if d.repo == nil {
		return
	}
	if err := d.repo.Save(context.WithoutCancel(ctx), r); err != nil {
		d.logger.Warn("failed to save run",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
}

// cleanup removes every tracked path, then the workspace directory.
func (d *Driver) cleanup(ctx context.Context, logger *slog.Logger, s *state) {
	ctx = context.WithoutCancel(ctx)
	if err := s.ws.CleanupTemp(ctx, s.tracked); err != nil {
		for _, e := range unjoin(err) {
			logger.Warn("cleanup failed", slog.String("error", e.Error()))
		}
	}
	if err := s.ws.Remove(); err != nil {
		logger.Warn("cleanup failed", slog.String("error", err.Error()))
	}
	logger.Debug("workspace removed",
		slog.String("dir", s.ws.Dir()),
		slog.Int("paths", len(s.tracked)),
	)
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func (d *Driver) generateScript(ctx context.Context, r *run.Run, s *state) error {
	genre := strings.TrimSpace(s.in.Genre)
	if genre == "" {
		picked, err := script.PickGenre(d.genres, d.rng)
		if err != nil {
			return err
		}
		genre = picked
	}

	pkg, err := d.deps.Writer.Package(ctx, genre)
	if err != nil {
		return err
	}

	s.genre = genre
	s.pkg = pkg
	r.Update(func(r *run.Run) {
		r.Genre = genre
		r.Title = pkg.Title
	})
	return nil
}

func (d *Driver) synthesizeAudio(ctx context.Context, r *run.Run, s *state) error {
	s.narration = s.ws.Path("narration.mp3")
	s.track(s.narration)

	if err := d.deps.Narrator.Synthesize(ctx, s.pkg.Script, s.narration); err != nil {
		return err
	}

	sec, err := d.deps.Media.Duration(ctx, s.narration)
	if err != nil {
		return fmt.Errorf("measure narration: %w", err)
	}
	if sec <= 0 {
		return fmt.Errorf("measure narration: %w", media.ErrInvalidDuration)
	}

	s.audioSec = sec
	r.Update(func(r *run.Run) { r.AudioSeconds = sec })
	return nil
}

func (d *Driver) deriveQueries(ctx context.Context, r *run.Run, s *state) error {
	queries, err := d.deps.Writer.SearchQueries(ctx, s.pkg.Script, s.audioSec)
	if err != nil {
		return err
	}
	s.queries = queries
	r.Update(func(r *run.Run) { r.Queries = len(queries) })
	return nil
}

func (d *Driver) fetchMedia(ctx context.Context, r *run.Run, s *state) error {
	clips, err := d.deps.Fetcher.Fetch(ctx, s.queries, s.ws)
	s.track(clips...)
	if err != nil {
		return err
	}
	s.clips = clips
	r.Update(func(r *run.Run) { r.Clips = len(clips) })
	return nil
}

func (d *Driver) mergeMedia(ctx context.Context, _ *run.Run, s *state) error {
	s.merged = s.ws.Path("merged.mp4")
	s.track(s.merged)
	return d.deps.Media.MergeVertical(ctx, s.clips, s.merged, d.canvas)
}

func (d *Driver) trimToAudio(ctx context.Context, r *run.Run, s *state) error {
	videoSec, err := d.deps.Media.Duration(ctx, s.merged)
	if err != nil {
		return fmt.Errorf("measure merged video: %w", err)
	}

	plan := media.PlanSpeed(videoSec, s.audioSec)
	if plan.Clamped {
		d.logger.Warn("footage shorter than narration at maximum speed",
			slog.String("run_id", r.ID),
			slog.Float64("video_sec", videoSec),
			slog.Float64("audio_sec", s.audioSec),
			slog.Float64("factor", plan.Factor),
		)
	}

	s.trimmed = s.ws.Path("trimmed.mp4")
	s.track(s.trimmed)
	if err := d.deps.Media.Trim(ctx, s.merged, s.trimmed, plan); err != nil {
		return err
	}

	s.speed = plan.Factor
	r.Update(func(r *run.Run) { r.SpeedFactor = plan.Factor })
	return nil
}

func (d *Driver) muxAudio(ctx context.Context, _ *run.Run, s *state) error {
	s.muxed = s.ws.Path("muxed.mp4")
	s.track(s.muxed)
	return d.deps.Media.MuxAudio(ctx, s.trimmed, s.narration, s.muxed)
}

func (d *Driver) burnCaptions(ctx context.Context, r *run.Run, s *state) error {
	// The transcriber names its output after the audio file.
	base := strings.TrimSuffix(filepath.Base(s.narration), filepath.Ext(s.narration))
	s.track(filepath.Join(s.ws.Dir(), base+".json"))

	transcript, err := d.deps.Transcriber.Transcribe(ctx, s.narration, s.ws.Dir())
	if err != nil {
		return err
	}

	subs := s.ws.Path("captions.ass")
	s.track(subs)
	n, err := captions.WriteASSFile(subs, transcript.Words(), d.style)
	if err != nil {
		return err
	}

	s.final = s.ws.Path("final.mp4")
	s.track(s.final)
	if err := d.deps.Media.BurnSubtitles(ctx, s.muxed, subs, s.final); err != nil {
		return err
	}

	r.Update(func(r *run.Run) { r.Captions = n })
	d.archive(ctx, r, s)
	return nil
}

// archive copies the final video to the archiver. Failures are logged and
// do not fail the run.
func (d *Driver) archive(ctx context.Context, r *run.Run, s *state) {
	if d.archiver == nil {
		return
	}

	f, err := s.ws.LoadTemp(ctx, s.final)
	if err != nil {
		d.logger.Warn("archive skipped", slog.String("run_id", r.ID), slog.String("error", err.Error()))
		return
	}
	defer func() { _ = f.Close() }()

	url, err := d.archiver.Archive(ctx, fmt.Sprintf("runs/%s/final.mp4", r.ID), f)
	if err != nil {
		d.logger.Warn("archive failed", slog.String("run_id", r.ID), slog.String("error", err.Error()))
		return
	}

	s.archive = url
	r.Update(func(r *run.Run) { r.ArchiveURL = url })
	d.logger.Info("final video archived", slog.String("run_id", r.ID), slog.String("url", url))
}

func (d *Driver) upload(ctx context.Context, r *run.Run, s *state) error {
	res, err := d.deps.Uploader.Upload(ctx, upload.Video{
		Path:        s.final,
		Title:       s.pkg.Title,
		Description: s.pkg.Description,
		Tags:        s.pkg.Tags,
		Privacy:     s.in.Privacy,
	})
	if err != nil {
		return err
	}
	if res.VideoID == "" {
		return upload.ErrNoVideoID
	}

	s.video = res
	r.Update(func(r *run.Run) {
		r.VideoID = res.VideoID
		r.VideoURL = res.URL
	})
	return nil
}
