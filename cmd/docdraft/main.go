package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docdraft/cmd/docdraft/commands"
	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("docdraft"),
		kong.Description("Publish per-branch documentation drafts to S3 and CloudFront."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Ctx: ctx, Getenv: os.Getenv, Out: os.Stdout}
	if err := parser.Run(global, cli); err != nil {
		stop()
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
