// Package pipeline runs a complete draft publication: resolve the branch,
// build the site, stage and diff it, synchronize it to the bucket, invalidate
// the CDN and report on the pull request.
//
// Every step is terminal on failure. Nothing is retried or rolled back; the
// next run repairs a partially published draft.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docdraft/internal/cdn"
	"git.home.luguber.info/inful/docdraft/internal/diff"
	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	"git.home.luguber.info/inful/docdraft/internal/forge"
	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/history"
	"git.home.luguber.info/inful/docdraft/internal/logfields"
	"git.home.luguber.info/inful/docdraft/internal/metrics"
	"git.home.luguber.info/inful/docdraft/internal/notify"
	"git.home.luguber.info/inful/docdraft/internal/publish"
	"git.home.luguber.info/inful/docdraft/internal/sitebuild"
	"git.home.luguber.info/inful/docdraft/internal/storage"
)

// Stage names used in logs and metrics.
const (
	StageGuard      = "guard"
	StageResolve    = "resolve"
	StageBuild      = "build"
	StageStage      = "stage"
	StageDiff       = "diff"
	StageSync       = "sync"
	StageInvalidate = "invalidate"
	StageReport     = "report"
)

// Reporter posts the run outcome on the pull request.
type Reporter interface {
	ReportSuccess(ctx context.Context, pr int, draftURL string) error
	ReportFailure(ctx context.Context, pr int, logTail string) error
}

// Deps are the collaborators of a run. Bucket, Invalidator and Builder are
// required; the rest default to no-ops.
type Deps struct {
	Bucket      storage.Bucket
	Invalidator cdn.Invalidator
	Builder     sitebuild.Builder
	Reporter    Reporter
	History     history.Store
	Publisher   notify.Publisher
	Recorder    metrics.Recorder
	Now         func() time.Time
	NewRunID    func() string
}

// Options describe one run.
type Options struct {
	Ref            string
	Repository     string // owner/name; written to the marker
	PullRequest    int    // 0 disables comments
	Event          *forge.PullRequestEvent
	Root           string
	AssetsDir      string
	BaseURL        string
	DistributionID string
	DocsDir        string // where the generator runs
	OutputDir      string // generator output
	StagingDir     string
	ForceMode      publish.Mode // empty derives the mode from the asset diff
	SkipBuild      bool
	SkipInvalidate bool
}

// RunReport summarizes a run.
type RunReport struct {
	RunID          string
	Ref            string
	Directory      draftpath.Directory
	Classification diff.Classification
	Mode           publish.Mode
	Uploaded       int
	Deleted        int
	Unchanged      int
	InvalidationID string
	URL            string
	Outcome        history.Outcome
	StartedAt      time.Time
	Duration       time.Duration
}

// Pipeline executes runs against a fixed set of collaborators.
type Pipeline struct {
	deps Deps
}

// New returns a pipeline, filling defaults for optional collaborators.
func New(deps Deps) *Pipeline {
	if deps.History == nil {
		deps.History = history.NoopStore{}
	}
	if deps.Publisher == nil {
		deps.Publisher = notify.NoopPublisher{}
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	return &Pipeline{deps: deps}
}

// Run publishes the draft described by opts.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunReport, error) {
	report := &RunReport{
		RunID:     p.deps.NewRunID(),
		Ref:       opts.Ref,
		StartedAt: p.deps.Now(),
		Outcome:   history.OutcomeFailed,
	}
	log := slog.With(logfields.RunID(report.RunID), logfields.Ref(opts.Ref))

	err := p.run(ctx, log, opts, report)
	report.Duration = p.deps.Now().Sub(report.StartedAt)
	p.finish(ctx, log, opts, report, err)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, opts Options, report *RunReport) error {
	if err := p.check(); err != nil {
		return err
	}

	if err := p.stage(StageGuard, func() error { return guard(opts) }); err != nil {
		report.Outcome = history.OutcomeRefused
		return err
	}

	var dir draftpath.Directory
	if err := p.stage(StageResolve, func() error {
		var err error
		dir, err = draftpath.Resolve(opts.Ref)
		return err
	}); err != nil {
		report.Outcome = history.OutcomeRefused
		return err
	}
	report.Directory = dir
	layout := draftpath.NewLayout(opts.Root, dir, opts.AssetsDir)
	report.URL = layout.URL(opts.BaseURL)
	log = log.With(logfields.Draft(string(dir)))
	log.Info("Resolved draft directory", logfields.Prefix(layout.Prefix()))

	if !opts.SkipBuild {
		if err := p.stage(StageBuild, func() error { return p.deps.Builder.Build(ctx, opts.DocsDir) }); err != nil {
			report.Outcome = history.OutcomeBuildFailed
			p.reportFailure(ctx, log, opts, err)
			return err
		}
	}

	var staged string
	if err := p.stage(StageStage, func() error {
		var err error
		staged, err = StageDraft(opts.OutputDir, opts.StagingDir, dir, opts.Repository)
		return err
	}); err != nil {
		if derrors.HasCategory(err, derrors.CategoryBuild) {
			report.Outcome = history.OutcomeBuildFailed
			p.reportFailure(ctx, log, opts, err)
		}
		return err
	}

	var assets *diff.Report
	if err := p.stage(StageDiff, func() error {
		var err error
		assets, err = diff.Detect(ctx, filepath.Join(staged, opts.AssetsDir), p.deps.Bucket, layout.AssetsPrefix())
		if err != nil {
			return derrors.WrapError(err, derrors.CategoryStorage, "detect asset changes").
				WithContext("prefix", layout.AssetsPrefix()).Build()
		}
		return nil
	}); err != nil {
		return err
	}
	report.Classification = assets.Classification
	for _, op := range assets.Operations {
		log.Debug(op.String())
	}

	mode := opts.ForceMode
	if mode == "" {
		mode = publish.ModeFor(assets.Classification)
	}
	report.Mode = mode

	if err := p.stage(StageSync, func() error {
		res, err := publish.NewSynchronizer(p.deps.Bucket).WithClock(p.deps.Now).Sync(ctx, staged, layout, mode)
		if res != nil {
			report.Uploaded = len(res.Uploaded)
			report.Deleted = len(res.Deleted)
			report.Unchanged = res.Unchanged
		}
		return err
	}); err != nil {
		return err
	}
	p.deps.Recorder.AddTransfers(metrics.OpUpload, report.Uploaded)
	p.deps.Recorder.AddTransfers(metrics.OpDelete, report.Deleted)

	if !opts.SkipInvalidate {
		if err := p.stage(StageInvalidate, func() error {
			id, err := cdn.Trigger(ctx, p.deps.Invalidator, opts.DistributionID, layout, p.deps.Now)
			report.InvalidationID = id
			return err
		}); err != nil {
			return err
		}
	}

	report.Outcome = history.OutcomePublished
	log.Info("Draft published", logfields.URL(report.URL), logfields.Mode(string(mode)))

	if p.deps.Reporter != nil && opts.PullRequest > 0 {
		if err := p.stage(StageReport, func() error {
			return p.deps.Reporter.ReportSuccess(ctx, opts.PullRequest, report.URL)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) check() error {
	switch {
	case p.deps.Bucket == nil:
		return derrors.InternalError("pipeline requires a bucket").Build()
	case p.deps.Invalidator == nil:
		return derrors.InternalError("pipeline requires an invalidator").Build()
	case p.deps.Builder == nil:
		return derrors.InternalError("pipeline requires a site builder").Build()
	}
	return nil
}

func guard(opts Options) error {
	if opts.Event != nil && opts.Event.IsFork() {
		return forge.ErrForkNotAllowed.
			WithContext("head", opts.Event.HeadRepository()).
			WithContext("base", opts.Event.BaseRepository())
	}
	if opts.Repository == "" {
		return derrors.ConfigError("source repository is required").Build()
	}
	return nil
}

func (p *Pipeline) stage(name string, fn func() error) error {
	start := p.deps.Now()
	err := fn()
	p.deps.Recorder.ObserveStageDuration(name, p.deps.Now().Sub(start))
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailed
		if errors.Is(err, context.Canceled) {
			result = metrics.ResultCanceled
		}
	}
	p.deps.Recorder.IncStageResult(name, result)
	return err
}

func (p *Pipeline) reportFailure(ctx context.Context, log *slog.Logger, opts Options, buildErr error) {
	if p.deps.Reporter == nil || opts.PullRequest <= 0 {
		return
	}
	tail := buildErr.Error()
	if f, ok := sitebuild.AsFailure(buildErr); ok && f.Tail != "" {
		tail = f.Tail
	}
	if err := p.stage(StageReport, func() error {
		return p.deps.Reporter.ReportFailure(ctx, opts.PullRequest, tail)
	}); err != nil {
		log.Warn("Failed to post build failure comment", logfields.PullRequest(opts.PullRequest), logfields.Error(err))
	}
}

func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, opts Options, report *RunReport, runErr error) {
	p.deps.Recorder.ObserveRunDuration(report.Duration)
	p.deps.Recorder.IncPublishOutcome(string(report.Outcome))

	errText := ""
	if runErr != nil {
		errText = runErr.Error()
		log.Error("Publish run failed", slog.String("outcome", string(report.Outcome)), logfields.Error(runErr))
	}
	if err := p.deps.History.Record(context.WithoutCancel(ctx), history.Run{
		RunID:          report.RunID,
		Directory:      string(report.Directory),
		Ref:            report.Ref,
		Repository:     opts.Repository,
		Mode:           string(report.Mode),
		Uploaded:       report.Uploaded,
		Deleted:        report.Deleted,
		InvalidationID: report.InvalidationID,
		URL:            report.URL,
		Outcome:        report.Outcome,
		Error:          errText,
		StartedAt:      report.StartedAt,
		Duration:       report.Duration,
	}); err != nil {
		log.Warn("Failed to record run history", logfields.Error(err))
	}

	if report.Outcome != history.OutcomePublished {
		return
	}
	p.deps.Recorder.SetLastPublish(p.deps.Now())
	if err := p.deps.Publisher.Publish(ctx, notify.Event{
		Kind:           notify.KindPublished,
		Draft:          string(report.Directory),
		URL:            report.URL,
		RunID:          report.RunID,
		Repository:     opts.Repository,
		Mode:           string(report.Mode),
		Uploaded:       report.Uploaded,
		Deleted:        report.Deleted,
		InvalidationID: report.InvalidationID,
		Timestamp:      p.deps.Now().UTC(),
	}); err != nil {
		log.Warn("Failed to publish draft event", logfields.Error(err))
	}
	log.Info("Publish run finished", logfields.Duration(report.Duration),
		slog.Int("uploaded", report.Uploaded), slog.Int("deleted", report.Deleted))
}
