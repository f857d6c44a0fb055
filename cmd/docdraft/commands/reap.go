package commands

import (
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docdraft/internal/config"
	"git.home.luguber.info/inful/docdraft/internal/reaper"
)

// ReapCmd implements the 'reap' command.
type ReapCmd struct {
	TTL        time.Duration `name:"ttl" help:"Delete drafts not published for this long (default: reaper.ttl)"`
	Every      time.Duration `help:"Keep running and reap at this interval"`
	DryRun     bool          `name:"dry-run" help:"Report expired drafts without deleting them"`
	Repository string        `help:"Only drafts whose marker names this repository are eligible"`
	Bucket     string        `help:"Drafts bucket (s3://name, file:///path, mem://name)"`
}

func (r *ReapCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if r.TTL > 0 {
		cfg.Reaper.TTL = config.Duration(r.TTL)
	}
	if r.Every > 0 {
		cfg.Reaper.Every = config.Duration(r.Every)
	}
	if r.Repository != "" {
		cfg.GitHub.Repository = r.Repository
	}
	if r.Bucket != "" {
		cfg.Storage.Bucket = r.Bucket
	}
	cfg.Reaper.DryRun = cfg.Reaper.DryRun || r.DryRun
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := g.context()
	bucket, err := openBucket(ctx, cfg)
	if err != nil {
		return err
	}
	publisher := openPublisher(cfg)
	defer publisher.Close()
	recorder, prom := newRecorder(cfg)

	rp := reaper.New(bucket, reaper.Options{
		Root:       cfg.Drafts.Root,
		AssetsDir:  cfg.Drafts.AssetsDir,
		Repository: cfg.GitHub.Repository,
		TTL:        cfg.Reaper.TTL.Std(),
		DryRun:     cfg.Reaper.DryRun,
	}).WithRecorder(recorder).WithPublisher(publisher)

	if cfg.Reaper.Every <= 0 {
		report, err := rp.Run(ctx)
		pushMetrics(ctx, cfg, prom, map[string]string{"command": "reap"})
		if err != nil {
			return err
		}
		printReap(g, report, cfg.Reaper.DryRun)
		return nil
	}

	sched, err := reaper.NewScheduler(rp)
	if err != nil {
		return err
	}
	sched.OnPass(func(report *reaper.Report, err error) {
		pushMetrics(ctx, cfg, prom, map[string]string{"command": "reap"})
		if err == nil {
			printReap(g, report, cfg.Reaper.DryRun)
		}
	})
	if _, err := sched.Every(ctx, cfg.Reaper.Every.Std()); err != nil {
		return err
	}
	sched.Start()
	slog.Info("Reaper running", "every", cfg.Reaper.Every.Std().String(), "ttl", cfg.Reaper.TTL.Std().String())
	<-ctx.Done()
	return sched.Stop()
}

func printReap(g *Global, report *reaper.Report, dryRun bool) {
	verb := "reaped"
	if dryRun {
		verb = "would reap"
	}
	out := g.out()
	for _, d := range report.Reaped() {
		_, _ = fmt.Fprintf(out, "%s %s (last published %s, %d objects)\n", verb, d.Dir, d.Touched.Format(time.RFC3339), d.Objects)
	}
	_, _ = fmt.Fprintf(out, "%d draft(s) scanned, %d %s, %d object(s) deleted\n",
		len(report.Decisions), len(report.Reaped()), verb, report.Deleted)
}
