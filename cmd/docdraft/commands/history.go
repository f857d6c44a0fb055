package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	HistoryDB string `name:"history-db" help:"SQLite run ledger path (default: history.path)"`
	Draft     string `help:"Only runs of this draft directory"`
	Limit     int    `short:"n" help:"Number of runs to show" default:"20"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	path := h.HistoryDB
	if path == "" {
		path = cfg.History.Path
	}
	if path == "" {
		return errors.ConfigError("no run ledger configured (set history.path or --history-db)").Build()
	}
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := g.context()
	var runs []history.Run
	if h.Draft != "" {
		runs, err = store.ByDirectory(ctx, h.Draft, h.Limit)
	} else {
		runs, err = store.Recent(ctx, h.Limit)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tDRAFT\tOUTCOME\tMODE\tUP\tDEL\tDURATION\tRUN")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.StartedAt.UTC().Format(time.RFC3339), r.Directory, r.Outcome, r.Mode,
			r.Uploaded, r.Deleted, r.Duration.Round(time.Second), r.RunID)
	}
	return tw.Flush()
}
