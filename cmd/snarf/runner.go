package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/handiism/snarf/internal/app"
	"github.com/handiism/snarf/internal/config"
	"github.com/handiism/snarf/internal/download"
	"github.com/handiism/snarf/internal/logging"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// Runner holds the dependencies of the CLI commands.
type Runner struct {
	output    io.Writer
	logOutput io.Writer
}

// RunnerOpts configures a Runner. Nil writers default to stdout and stderr.
type RunnerOpts struct {
	Output    io.Writer
	LogOutput io.Writer
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	return &Runner{output: opts.Output, logOutput: opts.LogOutput}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range []func(*Runner) *cli.Command{
		syncCommand, loginCommand, statusCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// setup loads the settings named by --config and builds a logger at the
// configured level, or debug with --verbose.
func (r *Runner) setup(cmd *cli.Command) (*config.Settings, *log.Logger, error) {
	settings, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	return settings, logging.NewLogger(r.logOutput, level), nil
}

// Sync runs one sync.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	settings, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}
	if dir := cmd.StringArg("output_dir"); dir != "" {
		settings.OutputDir = dir
	}
	if cmd.Bool("all") {
		settings.PublicOnly = false
	}
	dryRun := cmd.Bool("dry-run")

	logger, _ = logging.WithRun(logger)
	logger.Debug("starting sync", "output", settings.OutputDir, "public_only", settings.PublicOnly, "dry_run", dryRun)

	fmt.Fprintln(r.output, "📷 snarf")
	fmt.Fprintln(r.output, strings.Repeat("━", 40))

	session, err := app.Open(ctx, settings, app.Options{
		DryRun:     dryRun,
		NoNotify:   cmd.Bool("no-notify"),
		Logger:     logger,
		OnProgress: r.printEvent(cmd.Bool("verbose")),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to stop tagger", "err", err)
		}
	}()
	fmt.Fprintf(r.output, "Signed in as %s\n\n", session.User)

	summary, err := session.Manager.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(r.output, "\nInterrupted. Completed items are saved; run again to resume.")
	}
	r.printSummary(summary, dryRun)
	logger.Debug("sync finished", "downloaded", summary.Downloaded, "failed", summary.Failed)
	return err
}

// printEvent returns a progress callback that prints events, hiding
// verbose ones unless verbose is set.
func (r *Runner) printEvent(verbose bool) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verbose {
			return
		}

		var prefix string
		switch event.Level {
		case download.LevelError:
			prefix = "❌ "
		case download.LevelWarning:
			prefix = "⚠️  "
		case download.LevelSuccess:
			prefix = "✅ "
		case download.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}
		fmt.Fprintln(r.output, prefix+event.Message)
	}
}

func (r *Runner) printSummary(s download.Summary, dryRun bool) {
	fmt.Fprintln(r.output)
	fmt.Fprintln(r.output, strings.Repeat("━", 40))
	if dryRun {
		fmt.Fprintf(r.output, "✨ Dry run: %d to download, %d already done (%d listed)\n", s.Pending, s.Skipped, s.Listed)
	} else {
		fmt.Fprintf(r.output, "✨ Downloaded %d, skipped %d, failed %d (%d listed)\n", s.Downloaded, s.Skipped, s.Failed, s.Listed)
	}
	if s.Hidden > 0 || s.Malformed > 0 {
		fmt.Fprintf(r.output, "   %d not public, %d malformed\n", s.Hidden, s.Malformed)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(r.output, "   ✗ %s (%s): %v\n", f.Name, f.ID, f.Err)
	}
}

// Login verifies and stores an access token.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	settings, _, err := r.setup(cmd)
	if err != nil {
		return err
	}

	token := strings.TrimSpace(cmd.StringArg("token"))
	if token == "" {
		if token, err = r.promptToken(); err != nil {
			return err
		}
	}

	user, err := app.Login(ctx, settings, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.output, "Signed in as %s\nCredential saved to %s\n", user, settings.CredentialFile)
	return nil
}

// promptToken reads a token from the terminal without echoing it.
func (r *Runner) promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("usage: snarf login <token>")
	}

	fmt.Fprint(r.output, "Access token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(r.output)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", errors.New("no token entered")
	}
	return token, nil
}

// Status prints the local state without contacting the catalog.
func (r *Runner) Status(_ context.Context, cmd *cli.Command) error {
	settings, _, err := r.setup(cmd)
	if err != nil {
		return err
	}

	status, err := app.ReadStatus(settings)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.output, "Credential: %s\n", status.CredentialFile)
	fmt.Fprintf(r.output, "Ledger:     %s\n", status.LedgerPath)
	fmt.Fprintf(r.output, "Completed:  %d\n", status.Completed)
	fmt.Fprintf(r.output, "Output:     %s\n", status.OutputDir)
	return nil
}

// ConfigInit writes a configuration file holding the defaults.
func (r *Runner) ConfigInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := config.DefaultSettings().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(r.output, "Wrote %s\n", path)
	return nil
}
