package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/handiism/snarf/internal/app"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand(NewRunner(RunnerOpts{})).Run(ctx, os.Args)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func newRootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     app.Name,
		Usage:    "Sync your photo catalog to a local folder",
		Version:  app.Version,
		Commands: r.register(),
	}
}

// exitCode is 0 on success, 130 on interruption and 1 for any other error.
// Per-item failures do not make a run fail.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
