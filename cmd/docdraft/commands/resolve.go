package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docdraft/internal/config"
	"git.home.luguber.info/inful/docdraft/internal/draftpath"
)

// ResolveCmd implements the 'resolve' command.
type ResolveCmd struct {
	Ref string `arg:"" optional:"" help:"Branch reference (default: from the environment or the local checkout)"`
}

func (r *ResolveCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ref, err := config.ResolveRef(r.Ref, g.getenv, cfg.Build.Dir)
	if err != nil {
		return err
	}
	dir, err := draftpath.Resolve(ref)
	if err != nil {
		return err
	}
	layout := draftpath.NewLayout(cfg.Drafts.Root, dir, cfg.Drafts.AssetsDir)

	out := g.out()
	_, _ = fmt.Fprintf(out, "directory:    %s\n", dir)
	_, _ = fmt.Fprintf(out, "prefix:       %s\n", layout.Prefix())
	_, _ = fmt.Fprintf(out, "marker:       %s\n", layout.MarkerKey())
	_, _ = fmt.Fprintf(out, "invalidation: %s\n", layout.InvalidationPath())
	if cfg.Drafts.BaseURL != "" {
		_, _ = fmt.Fprintf(out, "url:          %s\n", layout.URL(cfg.Drafts.BaseURL))
	}
	return nil
}
