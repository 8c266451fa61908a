package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/handiism/snarf/internal/catalog"
	ioutils "github.com/handiism/snarf/internal/io"
	"github.com/handiism/snarf/internal/ledger"
	"github.com/handiism/snarf/internal/model"
	"github.com/handiism/snarf/internal/normalize"
	"github.com/handiism/snarf/internal/notify"
	"github.com/handiism/snarf/internal/tagging"
)

const (
	notifyTitle   = "Sync complete"
	notifyMessage = "Downloaded %d images"
)

// Fetcher downloads one payload. Implemented by *http.Client.
type Fetcher interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error
}

// Tagger writes tags into a downloaded file. Implemented by *tagging.Applier.
type Tagger interface {
	Writable(path string) tagging.TagSet
	Apply(path string, pairs []tagging.Pair) error
}

// ManagerConfig holds the collaborators and policy of a Manager.
type ManagerConfig struct {
	Catalog  catalog.Catalog
	Fetcher  Fetcher
	Tagger   Tagger
	Ledger   *ledger.Ledger
	Notifier notify.Notifier

	// Images downscales payloads larger than MaxDimension. Optional.
	Images       *ioutils.ImageService
	MaxDimension int

	// Table maps record fields to tags; tagging.DefaultTable() when nil.
	Table tagging.Table

	OutputDir string

	// PublicOnly drops items the catalog does not report as public.
	PublicOnly bool

	// TrustExistingFiles skips items whose destination file already exists.
	TrustExistingFiles bool

	// DryRun lists what would be downloaded without touching any file.
	DryRun bool

	Logger     *log.Logger
	OnProgress func(ProgressEvent)
	OnTransfer func(TransferEvent)

	// OnReady receives the destination file names once Initialize is done.
	OnReady func(names []string)
}

// Manager runs one sync: list, normalize, then fetch, tag and record each
// item in order. Items are processed one at a time on the calling goroutine;
// only GetProgress may be called concurrently.
type Manager struct {
	cfg        ManagerConfig
	normalizer *normalize.Normalizer

	records []*model.Record
	summary Summary

	mu       sync.RWMutex
	progress Progress
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Table == nil {
		cfg.Table = tagging.DefaultTable()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	m := &Manager{cfg: cfg}
	if cfg.Catalog != nil {
		m.normalizer = normalize.New(cfg.Catalog)
	}
	return m
}

func (m *Manager) validate() error {
	switch {
	case m.cfg.Catalog == nil:
		return errors.New("download: no catalog configured")
	case m.cfg.Fetcher == nil:
		return errors.New("download: no fetcher configured")
	case m.cfg.Tagger == nil:
		return errors.New("download: no tagger configured")
	case m.cfg.Ledger == nil:
		return errors.New("download: no ledger configured")
	}
	return nil
}

// Run performs a complete sync and notifies the user.
//
// The ledger is flushed whatever the outcome, except in a dry run. The
// returned error is either fatal for the run or the context error on
// interruption. Per-item failures are only reported in the Summary.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	err := m.Initialize(ctx)
	if err == nil {
		err = m.StartDownloads(ctx)
	}

	if m.cfg.Ledger != nil && !m.cfg.DryRun {
		if flushErr := m.cfg.Ledger.Flush(); flushErr != nil && err == nil {
			err = fmt.Errorf("failed to save ledger: %w", flushErr)
		}
	}

	if !m.cfg.DryRun && (err == nil || errors.Is(err, context.Canceled)) {
		m.notify()
	}
	return m.summary, err
}

// Initialize lists the catalog and normalizes every visible item.
//
// Geotagged items are normalized with geodata, the rest without. Malformed
// items are reported and skipped; any other failure aborts.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.validate(); err != nil {
		return err
	}
	m.records = nil
	m.summary = Summary{}

	m.emit(ProgressEvent{Message: "Listing catalog", Level: LevelInfo})

	withGeo, err := m.cfg.Catalog.ListWithGeo(ctx)
	if err != nil {
		return fmt.Errorf("failed to list geotagged items: %w", err)
	}
	withoutGeo, err := m.cfg.Catalog.ListWithoutGeo(ctx)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	partitions := []struct {
		items      []catalog.Item
		includeGeo bool
	}{
		{withGeo, true},
		{withoutGeo, false},
	}

	for _, part := range partitions {
		items, err := m.filterVisible(ctx, part.items)
		if err != nil {
			return err
		}
		m.summary.Listed += len(items)

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := m.normalizer.Normalize(ctx, item, part.includeGeo)
			if errors.Is(err, normalize.ErrMalformedItem) {
				m.summary.Malformed++
				m.emit(ProgressEvent{Message: fmt.Sprintf("Skipping malformed item: %v", err), Level: LevelWarning, ItemID: item.ID})
				continue
			}
			if err != nil {
				return err
			}
			m.records = append(m.records, rec)
		}
	}

	model.AssignFileNames(m.records)

	m.setProgress(func(p *Progress) {
		*p = Progress{ItemsTotal: len(m.records)}
	})
	m.emit(ProgressEvent{
		Message: fmt.Sprintf("Found %d items (%d with location)", len(m.records), countGeo(m.records)),
		Level:   LevelInfo,
	})
	if m.cfg.OnReady != nil {
		m.cfg.OnReady(m.GetItemNames())
	}
	return nil
}

// filterVisible applies the public-only policy.
func (m *Manager) filterVisible(ctx context.Context, items []catalog.Item) ([]catalog.Item, error) {
	if !m.cfg.PublicOnly {
		return items, nil
	}

	visible := items[:0:0]
	for _, item := range items {
		perms, err := m.cfg.Catalog.Permissions(ctx, item.ID)
		if errors.Is(err, catalog.ErrNotFound) {
			m.summary.Hidden++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get permissions of %s: %w", item.ID, err)
		}
		if !perms.IsPublic {
			m.summary.Hidden++
			m.emit(ProgressEvent{Message: fmt.Sprintf("Skipping non-public item: %s", item.ID), Level: LevelVerbose, ItemID: item.ID})
			continue
		}
		visible = append(visible, item)
	}
	return visible, nil
}

// StartDownloads processes the initialized records in order.
//
// An item is skipped when its ID is in the ledger or its destination file
// exists (if trusted). Otherwise it is fetched, tagged and recorded. A fetch
// or tag failure only affects that item; a file that could not be tagged is
// removed so the next run fetches it again. A ledger failure, or ctx being
// cancelled, stops the run.
func (m *Manager) StartDownloads(ctx context.Context) error {
	if err := m.validate(); err != nil {
		return err
	}
	if !m.cfg.DryRun {
		if err := ioutils.EnsureDir(m.cfg.OutputDir); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	total := len(m.records)
	for i, rec := range m.records {
		if err := ctx.Err(); err != nil {
			return err
		}

		dest := filepath.Join(m.cfg.OutputDir, rec.FileName)
		m.setProgress(func(p *Progress) {
			p.Current = rec.FileName
			p.BytesWritten, p.BytesTotal = 0, -1
		})

		done, err := m.processItem(ctx, i+1, total, rec, dest)
		if err != nil {
			return err
		}
		if done {
			m.setProgress(func(p *Progress) { p.ItemsDone++ })
		}
	}

	m.setProgress(func(p *Progress) { p.Current = "" })
	m.emit(ProgressEvent{
		Message: fmt.Sprintf("Done: %d downloaded, %d skipped, %d failed", m.summary.Downloaded, m.summary.Skipped, m.summary.Failed),
		Level:   LevelSuccess,
	})
	return nil
}

// processItem handles one record. It reports whether the item is complete
// and returns an error only for failures that end the run.
func (m *Manager) processItem(ctx context.Context, index, total int, rec *model.Record, dest string) (bool, error) {
	if m.cfg.Ledger.Contains(rec.ID) {
		m.summary.Skipped++
		m.emit(ProgressEvent{Message: fmt.Sprintf("Already synced: %s", rec.FileName), Level: LevelVerbose, ItemID: rec.ID})
		return true, nil
	}
	if m.cfg.TrustExistingFiles {
		exists, err := ioutils.FileExists(dest)
		if err != nil {
			m.fail(rec, fmt.Errorf("failed to check %s: %w", dest, err))
			return false, nil
		}
		if exists {
			// The file was not written by a completed sync, so it may lack tags.
			m.summary.Skipped++
			m.emit(ProgressEvent{Message: fmt.Sprintf("Keeping existing file not in ledger: %s", rec.FileName), Level: LevelWarning, ItemID: rec.ID})
			return true, nil
		}
	}

	if m.cfg.DryRun {
		m.summary.Pending++
		m.emit(ProgressEvent{Message: fmt.Sprintf("Would download: %s", rec.FileName), Level: LevelInfo, ItemID: rec.ID})
		return false, nil
	}

	m.emit(ProgressEvent{Message: fmt.Sprintf("[%d/%d] Downloading %s", index, total, rec.FileName), Level: LevelInfo, ItemID: rec.ID})

	err := m.cfg.Fetcher.DownloadFile(ctx, rec.SourceURL, dest, func(written, size int64) {
		m.setProgress(func(p *Progress) { p.BytesWritten, p.BytesTotal = written, size })
		if m.cfg.OnTransfer != nil {
			m.cfg.OnTransfer(TransferEvent{Index: index, Total: total, Name: rec.FileName, Written: written, Size: size})
		}
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		m.fail(rec, err)
		return false, nil
	}

	m.downscale(ctx, rec, dest)

	pairs := tagging.Map(rec, m.cfg.Table, m.cfg.Tagger.Writable(dest))
	if err := m.cfg.Tagger.Apply(dest, pairs); err != nil {
		// An untagged file left at dest would be trusted as complete next run.
		if rmErr := os.Remove(dest); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, fmt.Errorf("failed to remove untagged file: %w", rmErr))
		}
		m.fail(rec, err)
		return false, nil
	}

	if err := m.cfg.Ledger.Record(rec.ID); err != nil {
		return false, fmt.Errorf("failed to record %s in ledger: %w", rec.ID, err)
	}

	m.summary.Downloaded++
	m.emit(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", rec.FileName), Level: LevelSuccess, ItemID: rec.ID})
	return true, nil
}

// downscale shrinks oversized images. Failures leave the original in place.
func (m *Manager) downscale(ctx context.Context, rec *model.Record, dest string) {
	if m.cfg.Images == nil || m.cfg.MaxDimension <= 0 {
		return
	}
	resized, err := m.cfg.Images.ResizeFile(ctx, dest, m.cfg.MaxDimension)
	switch {
	case err != nil:
		m.emit(ProgressEvent{Message: fmt.Sprintf("Keeping original size of %s: %v", rec.FileName, err), Level: LevelWarning, ItemID: rec.ID})
	case resized:
		m.emit(ProgressEvent{Message: fmt.Sprintf("Resized %s to %dpx", rec.FileName, m.cfg.MaxDimension), Level: LevelVerbose, ItemID: rec.ID})
	}
}

func (m *Manager) fail(rec *model.Record, err error) {
	m.summary.Failed++
	m.summary.Failures = append(m.summary.Failures, Failure{ID: rec.ID, Name: rec.FileName, Err: err})
	m.emit(ProgressEvent{Message: fmt.Sprintf("Error processing %s: %v", rec.FileName, err), Level: LevelError, ItemID: rec.ID})
}

func (m *Manager) notify() {
	msg := fmt.Sprintf(notifyMessage, m.summary.Downloaded)
	if err := m.cfg.Notifier.Notify(notifyTitle, msg); err != nil {
		m.cfg.Logger.Debug("notification failed", "err", err)
	}
}

// Records returns the normalized records in processing order.
func (m *Manager) Records() []*model.Record {
	return m.records
}

// GetItemNames returns the destination file names of all records.
func (m *Manager) GetItemNames() []string {
	names := make([]string, len(m.records))
	for i, rec := range m.records {
		names[i] = rec.FileName
	}
	return names
}

// Summary returns the counters of the last run.
func (m *Manager) Summary() Summary {
	return m.summary
}

// GetProgress returns current sync progress.
func (m *Manager) GetProgress() Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress
}

func (m *Manager) setProgress(update func(*Progress)) {
	m.mu.Lock()
	update(&m.progress)
	m.mu.Unlock()
}

func (m *Manager) emit(event ProgressEvent) {
	if m.cfg.OnProgress != nil {
		m.cfg.OnProgress(event)
	}
}

func countGeo(records []*model.Record) int {
	n := 0
	for _, rec := range records {
		if rec.HasGeo() {
			n++
		}
	}
	return n
}
