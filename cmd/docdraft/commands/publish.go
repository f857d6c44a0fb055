package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docdraft/internal/cdn"
	"git.home.luguber.info/inful/docdraft/internal/config"
	"git.home.luguber.info/inful/docdraft/internal/forge"
	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/pipeline"
	"git.home.luguber.info/inful/docdraft/internal/publish"
	"git.home.luguber.info/inful/docdraft/internal/sitebuild"
	"git.home.luguber.info/inful/docdraft/internal/storage"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	Ref            string `help:"Branch reference (default: GITHUB_HEAD_REF, GITHUB_REF, then the local checkout)"`
	PR             int    `name:"pr" help:"Pull request number to comment on (default: from the event payload)"`
	Repository     string `help:"Source repository (owner/name)"`
	Bucket         string `help:"Drafts bucket (s3://name, file:///path, mem://name)"`
	DistributionID string `name:"distribution-id" help:"CloudFront distribution ID"`
	BaseURL        string `name:"base-url" help:"Public base URL of the drafts site"`
	DocsDir        string `name:"docs-dir" help:"Directory the site generator runs in"`
	Output         string `short:"o" help:"Generator output directory, relative to --docs-dir"`
	Command        string `help:"Site generator command"`
	Mode           string `help:"Sync mode: auto, full or incremental"`
	HistoryDB      string `name:"history-db" help:"SQLite run ledger path"`
	SkipBuild      bool   `name:"skip-build" help:"Publish an existing build output"`
	SkipInvalidate bool   `name:"skip-invalidate" help:"Do not invalidate the CDN"`
	Comment        bool   `help:"Post the result on the pull request" default:"true" negatable:""`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if err := p.apply(cfg); err != nil {
		return err
	}
	ctx := g.context()

	ref, err := config.ResolveRef(p.Ref, g.getenv, cfg.Build.Dir)
	if err != nil {
		return err
	}

	var event *forge.PullRequestEvent
	if cfg.GitHub.EventPath != "" {
		event, err = forge.ReadEvent(cfg.GitHub.EventPath)
		if err != nil {
			slog.Warn("Ignoring unreadable event payload", "path", cfg.GitHub.EventPath, "error", err)
			event = nil
		} else if cfg.GitHub.PullRequest == 0 {
			cfg.GitHub.PullRequest = event.PRNumber()
		}
	}
	cfg.GitHub.Comment = p.Comment && cfg.GitHub.PullRequest > 0
	if err := cfg.ValidatePublish(); err != nil {
		return err
	}

	bucket, err := openBucket(ctx, cfg)
	if err != nil {
		return err
	}
	invalidator, err := newInvalidator(ctx, cfg)
	if err != nil {
		return err
	}
	reporter, err := newReporter(cfg)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	publisher := openPublisher(cfg)
	defer publisher.Close()
	recorder, prom := newRecorder(cfg)

	builder := sitebuild.NewCommandBuilder(strings.Fields(cfg.Build.Command), cfg.BuildLogPath())
	builder.TailLines = cfg.Build.TailLines
	if root.Verbose {
		builder.Stream = g.out()
	}

	deps := pipeline.Deps{
		Bucket:      bucket,
		Invalidator: invalidator,
		Builder:     builder,
		History:     store,
		Publisher:   publisher,
		Recorder:    recorder,
	}
	if reporter != nil {
		deps.Reporter = reporter
	}

	report, runErr := pipeline.New(deps).Run(ctx, pipeline.Options{
		Ref:            ref,
		Repository:     cfg.GitHub.Repository,
		PullRequest:    cfg.GitHub.PullRequest,
		Event:          event,
		Root:           cfg.Drafts.Root,
		AssetsDir:      cfg.Drafts.AssetsDir,
		BaseURL:        cfg.Drafts.BaseURL,
		DistributionID: cfg.CDN.DistributionID,
		DocsDir:        cfg.Build.Dir,
		OutputDir:      cfg.BuildOutputDir(),
		StagingDir:     cfg.Sync.StagingDir,
		ForceMode:      forcedMode(cfg.Sync.Mode),
		SkipBuild:      cfg.Build.Skip,
		SkipInvalidate: cfg.CDN.Skip,
	})
	pushMetrics(ctx, cfg, prom, map[string]string{"draft": string(report.Directory)})
	if runErr != nil {
		return runErr
	}

	out := g.out()
	_, _ = fmt.Fprintf(out, "run:          %s\n", report.RunID)
	_, _ = fmt.Fprintf(out, "draft:        %s\n", report.Directory)
	_, _ = fmt.Fprintf(out, "mode:         %s (assets %s)\n", report.Mode, report.Classification)
	_, _ = fmt.Fprintf(out, "uploaded:     %d\n", report.Uploaded)
	_, _ = fmt.Fprintf(out, "deleted:      %d\n", report.Deleted)
	if report.InvalidationID != "" {
		_, _ = fmt.Fprintf(out, "invalidation: %s\n", report.InvalidationID)
	}
	_, _ = fmt.Fprintf(out, "url:          %s\n", report.URL)
	return nil
}

func (p *PublishCmd) apply(cfg *config.Config) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.GitHub.Repository, p.Repository)
	set(&cfg.Storage.Bucket, p.Bucket)
	set(&cfg.CDN.DistributionID, p.DistributionID)
	set(&cfg.Drafts.BaseURL, p.BaseURL)
	set(&cfg.Build.Command, p.Command)
	set(&cfg.History.Path, p.HistoryDB)
	if p.DocsDir != "" {
		if cfg.Sync.StagingDir == filepath.Join(cfg.Build.Dir, config.DefaultStagingName) {
			cfg.Sync.StagingDir = filepath.Join(p.DocsDir, config.DefaultStagingName)
		}
		cfg.Build.Dir = p.DocsDir
	}
	set(&cfg.Build.Output, p.Output)
	if p.Mode != "" {
		mode, err := config.ParseSyncMode(p.Mode)
		if err != nil {
			return err
		}
		cfg.Sync.Mode = mode
	}
	if p.PR > 0 {
		cfg.GitHub.PullRequest = p.PR
	}
	cfg.Build.Skip = cfg.Build.Skip || p.SkipBuild
	cfg.CDN.Skip = cfg.CDN.Skip || p.SkipInvalidate
	return nil
}

func forcedMode(m config.SyncMode) publish.Mode {
	switch m {
	case config.SyncModeFull:
		return publish.ModeFull
	case config.SyncModeIncremental:
		return publish.ModeIncremental
	default:
		return ""
	}
}

func newInvalidator(ctx context.Context, cfg *config.Config) (cdn.Invalidator, error) {
	if cfg.CDN.Skip {
		return &cdn.MemoryInvalidator{}, nil
	}
	awsCfg, err := storage.LoadAWSConfig(ctx, awsOptions(cfg))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "load AWS configuration").Build()
	}
	return cdn.NewCloudFrontFromConfig(awsCfg, cfg.CDN.WaitTimeout.Std()), nil
}

func newReporter(cfg *config.Config) (*forge.Reporter, error) {
	if !cfg.GitHub.Comment {
		return nil, nil
	}
	client, err := forge.NewClient(cfg.GitHub.Token, forge.WithAPIURL(cfg.GitHub.APIURL))
	if err != nil {
		return nil, err
	}
	return forge.NewReporter(client, cfg.GitHub.Repository), nil
}
