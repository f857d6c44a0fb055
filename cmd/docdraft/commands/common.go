// Package commands implements the docdraft subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docdraft/internal/config"
	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/history"
	"git.home.luguber.info/inful/docdraft/internal/metrics"
	"git.home.luguber.info/inful/docdraft/internal/notify"
	"git.home.luguber.info/inful/docdraft/internal/storage"
)

// Global carries process-wide state into every command.
type Global struct {
	Ctx    context.Context
	Getenv func(string) string
	Out    io.Writer
}

func (g *Global) context() context.Context {
	if g == nil || g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) getenv(k string) string {
	if g == nil || g.Getenv == nil {
		return os.Getenv(k)
	}
	return g.Getenv(k)
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (optional)" env:"DOCDRAFT_CONFIG" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Publish PublishCmd `cmd:"" help:"Build and publish the draft for the current branch"`
	Resolve ResolveCmd `cmd:"" help:"Print the draft directory and URLs for a branch reference"`
	Diff    DiffCmd    `cmd:"" help:"Dry-run the asset diff against the published draft"`
	Reap    ReapCmd    `cmd:"" help:"Delete drafts whose marker has not been touched within the TTL"`
	History HistoryCmd `cmd:"" help:"List recent publish runs from the local ledger"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	setupLogging(level, config.LogFormatText)
	return nil
}

func setupLogging(level slog.Level, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig loads the configuration and re-applies logging settings from it.
// -v always wins over the configured level.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(root.Config, g.getenv)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level.Slog()
	if root.Verbose {
		level = slog.LevelDebug
	}
	setupLogging(level, cfg.Logging.Format)
	return cfg, nil
}

func openBucket(ctx context.Context, cfg *config.Config) (storage.Bucket, error) {
	b, err := storage.Open(ctx, cfg.Storage.Bucket, awsOptions(cfg))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "open drafts bucket").
			WithContext("bucket", cfg.Storage.Bucket).Build()
	}
	return b, nil
}

func awsOptions(cfg *config.Config) storage.AWSOptions {
	return storage.AWSOptions{
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Endpoint:        cfg.Storage.Endpoint,
	}
}

func openHistory(path string) (history.Store, error) {
	if path == "" {
		return history.NoopStore{}, nil
	}
	return history.NewSQLiteStore(path)
}

func openPublisher(cfg *config.Config) notify.Publisher {
	if cfg.Notify.NATSURL == "" {
		return notify.NoopPublisher{}
	}
	p, err := notify.NewNATSPublisher(cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		slog.Warn("Publish notifications disabled", "error", err)
		return notify.NoopPublisher{}
	}
	return p
}

// newRecorder returns a Prometheus recorder when a Pushgateway is configured.
func newRecorder(cfg *config.Config) (metrics.Recorder, *metrics.PrometheusRecorder) {
	if cfg.Metrics.PushgatewayURL == "" {
		return metrics.NoopRecorder{}, nil
	}
	pr := metrics.NewPrometheusRecorder(nil)
	return pr, pr
}

func pushMetrics(ctx context.Context, cfg *config.Config, pr *metrics.PrometheusRecorder, grouping map[string]string) {
	if pr == nil {
		return
	}
	if err := metrics.Push(context.WithoutCancel(ctx), cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, pr.Registry(), grouping); err != nil {
		slog.Warn("Failed to push metrics", "error", err)
	}
}
