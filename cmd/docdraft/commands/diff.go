package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/docdraft/internal/config"
	"git.home.luguber.info/inful/docdraft/internal/diff"
	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

// DiffCmd implements the 'diff' command.
type DiffCmd struct {
	Ref    string `help:"Branch reference (default: from the environment or the local checkout)"`
	Bucket string `help:"Drafts bucket (s3://name, file:///path, mem://name)"`
	Output string `short:"o" help:"Build output directory (default: build.dir/build.output)"`
}

func (d *DiffCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if d.Bucket != "" {
		cfg.Storage.Bucket = d.Bucket
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ref, err := config.ResolveRef(d.Ref, g.getenv, cfg.Build.Dir)
	if err != nil {
		return err
	}
	dir, err := draftpath.Resolve(ref)
	if err != nil {
		return err
	}
	layout := draftpath.NewLayout(cfg.Drafts.Root, dir, cfg.Drafts.AssetsDir)

	output := d.Output
	if output == "" {
		output = cfg.BuildOutputDir()
	}
	ctx := g.context()
	bucket, err := openBucket(ctx, cfg)
	if err != nil {
		return err
	}
	report, err := diff.Detect(ctx, filepath.Join(output, cfg.Drafts.AssetsDir), bucket, layout.AssetsPrefix())
	if err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "detect asset changes").Build()
	}

	out := g.out()
	if err := report.WriteLog(out); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "write diff log").Build()
	}
	_, _ = fmt.Fprintf(out, "%s: %d upload(s), %d delete(s)\n", report.Classification, report.Uploads(), report.Deletes())
	return nil
}
