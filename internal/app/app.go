// Package app wires settings into a ready-to-run sync.
//
// Both the command line and the terminal UI start a run through Open:
//
//	session, err := app.Open(ctx, settings, app.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//	summary, err := session.Manager.Run(ctx)
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"
	"github.com/handiism/snarf/internal/catalog"
	"github.com/handiism/snarf/internal/catalog/flickr"
	"github.com/handiism/snarf/internal/config"
	"github.com/handiism/snarf/internal/download"
	"github.com/handiism/snarf/internal/http"
	ioutils "github.com/handiism/snarf/internal/io"
	"github.com/handiism/snarf/internal/ledger"
	"github.com/handiism/snarf/internal/notify"
	"github.com/handiism/snarf/internal/tagging"
)

// Name is the application name shown in notifications.
const Name = "snarf"

// Version is reported by the CLI and sent as part of the User-Agent.
const Version = "1.0.0"

// Options adjusts a run beyond the settings file.
type Options struct {
	DryRun   bool
	NoNotify bool

	Logger     *log.Logger
	OnProgress func(download.ProgressEvent)
	OnTransfer func(download.TransferEvent)
	OnReady    func(names []string)
}

// Session holds the collaborators of one run.
type Session struct {
	Manager *download.Manager
	Ledger  *ledger.Ledger
	Catalog *flickr.Client

	// User is the account name reported by the catalog.
	User string

	closers []io.Closer
}

// Open verifies the stored credential, loads the ledger and builds the
// Manager. Close must be called when the run is over.
func Open(ctx context.Context, settings *config.Settings, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	token, err := config.LoadCredential(settings.CredentialFile)
	if err != nil {
		return nil, err
	}

	client := flickr.NewClient(flickr.Options{
		Endpoint:          settings.Endpoint,
		APIKey:            settings.APIKey,
		Token:             token,
		RequestsPerSecond: settings.RequestsPerSecond,
		Logger:            logger,
	})

	user, err := client.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credential: %w", err)
	}
	logger.Info("authenticated", "user", user)

	led, err := ledger.Load(settings.LedgerPath(token))
	if err != nil {
		return nil, err
	}
	logger.Debug("ledger loaded", "path", led.Path(), "items", led.Len())

	s := &Session{Ledger: led, Catalog: client, User: user}

	var images tagging.Backend
	if !opts.DryRun {
		exif, err := tagging.NewExifBackend(settings.ExiftoolPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, exif)
		images = exif
	}
	applier := tagging.NewApplier(images, map[string]tagging.Backend{
		".mp3": tagging.NewID3Backend(),
	})

	var notifier notify.Notifier = notify.Nop{}
	if settings.Notify && !opts.NoNotify {
		beeep.AppName = Name
		notifier = notify.Desktop{}
	}

	var resizer *ioutils.ImageService
	if settings.MaxDimension > 0 {
		resizer = ioutils.NewImageService()
	}

	s.Manager = download.NewManager(download.ManagerConfig{
		Catalog:            client,
		Fetcher:            http.NewClient(settings.DownloadTimeout, Name+"/"+Version),
		Tagger:             applier,
		Ledger:             led,
		Notifier:           notifier,
		Images:             resizer,
		MaxDimension:       settings.MaxDimension,
		OutputDir:          settings.OutputDir,
		PublicOnly:         settings.PublicOnly,
		TrustExistingFiles: settings.TrustExistingFiles,
		DryRun:             opts.DryRun,
		Logger:             logger,
		OnProgress:         opts.OnProgress,
		OnTransfer:         opts.OnTransfer,
		OnReady:            opts.OnReady,
	})
	return s, nil
}

// Close releases the session's external processes.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Login stores token and verifies it against the catalog, returning the
// account name. The token is kept only if the catalog accepts it.
func Login(ctx context.Context, settings *config.Settings, token string) (string, error) {
	client := flickr.NewClient(flickr.Options{
		Endpoint: settings.Endpoint,
		APIKey:   settings.APIKey,
		Token:    token,
	})

	user, err := client.Login(ctx)
	if err != nil {
		if errors.Is(err, catalog.ErrAuthFailed) {
			return "", fmt.Errorf("credential rejected: %w", err)
		}
		return "", err
	}

	if err := config.SaveCredential(settings.CredentialFile, token); err != nil {
		return "", err
	}
	return user, nil
}

// Status describes the local state for the current credential.
type Status struct {
	CredentialFile string
	LedgerPath     string
	Completed      int
	OutputDir      string
}

// ReadStatus loads the ledger of the stored credential without contacting
// the catalog.
func ReadStatus(settings *config.Settings) (Status, error) {
	token, err := config.LoadCredential(settings.CredentialFile)
	if err != nil {
		return Status{}, err
	}
	led, err := ledger.Load(settings.LedgerPath(token))
	if err != nil {
		return Status{}, err
	}
	return Status{
		CredentialFile: settings.CredentialFile,
		LedgerPath:     led.Path(),
		Completed:      led.Len(),
		OutputDir:      settings.OutputDir,
	}, nil
}
