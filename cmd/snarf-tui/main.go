package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/handiism/snarf/internal/config"
	ioutils "github.com/handiism/snarf/internal/io"
	"github.com/handiism/snarf/internal/logging"
	"github.com/handiism/snarf/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file")
	flag.Parse()

	if err := run(*configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The screen belongs to the TUI, so logs go to a file next to the ledger.
	logger := logging.Discard()
	if err := ioutils.EnsureDir(settings.LedgerDir); err == nil {
		f, err := os.OpenFile(filepath.Join(settings.LedgerDir, "snarf-tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			defer f.Close()
			level, _ := logging.ParseLevel(settings.LogLevel)
			logger, _ = logging.WithRun(logging.NewLogger(f, level))
		}
	}
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, settings, logger)
}
