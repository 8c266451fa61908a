package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/handiism/snarf/internal/catalog"
	"github.com/handiism/snarf/internal/catalog/catalogtest"
	fetch "github.com/handiism/snarf/internal/http"
	"github.com/handiism/snarf/internal/ledger"
	"github.com/handiism/snarf/internal/notify"
	"github.com/handiism/snarf/internal/tagging"
	"github.com/handiism/snarf/internal/tagging/tagtest"
)

// payloadServer serves "<path> payload" for every path and counts hits.
type payloadServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
	fail map[string]bool
}

func newPayloadServer(t *testing.T) *payloadServer {
	t.Helper()
	ps := &payloadServer{hits: map[string]int{}, fail: map[string]bool{}}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.hits[r.URL.Path]++
		failing := ps.fail[r.URL.Path]
		ps.mu.Unlock()

		if failing {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "%s payload", r.URL.Path)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *payloadServer) Hits(path string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.hits[path]
}

func (ps *payloadServer) TotalHits() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	n := 0
	for _, h := range ps.hits {
		n += h
	}
	return n
}

func (ps *payloadServer) SetFailing(path string, failing bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.fail[path] = failing
}

func photo(srv *payloadServer, id, title string) catalogtest.Photo {
	return catalogtest.Photo{
		ID:    id,
		Title: title,
		Sizes: catalogtest.OneSize(srv.URL + "/" + strings.ToLower(title) + "_o.jpg"),
	}
}

type harness struct {
	t          *testing.T
	out        string
	ledgerPath string
	catalog    *catalogtest.Catalog
	recorder   *tagtest.Recorder
	events     []ProgressEvent
	notes      []string
}

func newHarness(t *testing.T, photos ...catalogtest.Photo) *harness {
	dir := t.TempDir()
	return &harness{
		t:          t,
		out:        filepath.Join(dir, "output"),
		ledgerPath: filepath.Join(dir, "state", "ledger.json.gz"),
		catalog:    catalogtest.New(photos...),
		recorder:   tagtest.NewRecorder(),
	}
}

func (h *harness) config() ManagerConfig {
	h.t.Helper()
	led, err := ledger.Load(h.ledgerPath)
	if err != nil {
		h.t.Fatalf("ledger.Load() error: %v", err)
	}
	return ManagerConfig{
		Catalog:            h.catalog,
		Fetcher:            fetch.NewClient(0, "snarf-test"),
		Tagger:             tagging.NewApplier(h.recorder, nil),
		Ledger:             led,
		OutputDir:          h.out,
		PublicOnly:         true,
		TrustExistingFiles: true,
		Notifier: notify.Func(func(title, message string) error {
			h.notes = append(h.notes, title+": "+message)
			return nil
		}),
		OnProgress: func(e ProgressEvent) { h.events = append(h.events, e) },
	}
}

func (h *harness) run(cfg ManagerConfig) (Summary, error) {
	return NewManager(cfg).Run(context.Background())
}

func (h *harness) ledgerIDs() []string {
	h.t.Helper()
	led, err := ledger.Load(h.ledgerPath)
	if err != nil {
		h.t.Fatalf("ledger.Load() error: %v", err)
	}
	return led.IDs()
}

func (h *harness) path(name string) string {
	return filepath.Join(h.out, name)
}

func TestManager_SunsetAndCat(t *testing.T) {
	srv := newPayloadServer(t)
	sunset := photo(srv, "42", "Sunset")
	sunset.Geo = true
	sunset.Location = catalog.Location{Locality: "Bristol", Region: "England", Country: "UK"}
	h := newHarness(t, sunset, photo(srv, "43", "Cat"))

	summary, err := h.run(h.config())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	for _, name := range []string{"Sunset.jpg", "Cat.jpg"} {
		if _, err := os.Stat(h.path(name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}

	sunsetTags := h.recorder.Written(h.path("Sunset.jpg"))
	if got := sunsetTags["Location"]; !reflect.DeepEqual(got, []string{"Bristol, England, UK"}) {
		t.Errorf("Sunset.jpg Location = %v", got)
	}
	if got := sunsetTags["Title"]; !reflect.DeepEqual(got, []string{"Sunset"}) {
		t.Errorf("Sunset.jpg Title = %v", got)
	}

	catTags := h.recorder.Written(h.path("Cat.jpg"))
	if catTags == nil {
		t.Fatal("Cat.jpg was not tagged")
	}
	for _, tag := range []string{"Location", "Country", "GPSLatitude", "GPSLongitude"} {
		if _, ok := catTags[tag]; ok {
			t.Errorf("Cat.jpg has %s tag", tag)
		}
	}

	if got := h.ledgerIDs(); !reflect.DeepEqual(got, []string{"42", "43"}) {
		t.Errorf("ledger = %v, want [42 43]", got)
	}
	if summary.Downloaded != 2 || summary.Listed != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(h.notes) != 1 || h.notes[0] != "Sync complete: Downloaded 2 images" {
		t.Errorf("notifications = %v", h.notes)
	}
	if h.catalog.Calls("Location") != 1 {
		t.Errorf("Location called %d times, want 1", h.catalog.Calls("Location"))
	}
}

func TestManager_Idempotent(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"))

	cfg := h.config()
	cfg.TrustExistingFiles = false
	if _, err := h.run(cfg); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	hits := srv.TotalHits()
	saves := h.recorder.Saves()
	ledgerBytes, err := os.ReadFile(h.ledgerPath)
	if err != nil {
		t.Fatal(err)
	}

	cfg = h.config()
	cfg.TrustExistingFiles = false
	summary, err := h.run(cfg)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	if got := srv.TotalHits(); got != hits {
		t.Errorf("second run made %d downloads", got-hits)
	}
	if got := h.recorder.Saves(); got != saves {
		t.Errorf("second run made %d tag writes", got-saves)
	}
	after, err := os.ReadFile(h.ledgerPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(after, ledgerBytes) {
		t.Error("ledger file changed on second run")
	}
	if summary.Skipped != 2 || summary.Downloaded != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestManager_Resumes(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"), photo(srv, "3", "Three"))

	led, err := ledger.Load(h.ledgerPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := led.Record("1"); err != nil {
		t.Fatal(err)
	}

	cfg := h.config()
	cfg.TrustExistingFiles = false
	summary, err := h.run(cfg)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if srv.Hits("/one_o.jpg") != 0 {
		t.Error("recorded item downloaded again")
	}
	if srv.Hits("/two_o.jpg") != 1 || srv.Hits("/three_o.jpg") != 1 {
		t.Errorf("hits = two:%d three:%d, want 1 each", srv.Hits("/two_o.jpg"), srv.Hits("/three_o.jpg"))
	}
	if summary.Downloaded != 2 || summary.Skipped != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if got := h.ledgerIDs(); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("ledger = %v", got)
	}
}

func TestManager_PartialFailure(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"), photo(srv, "3", "Three"))
	srv.SetFailing("/two_o.jpg", true)

	summary, err := h.run(h.config())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Failed != 1 || summary.Downloaded != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].ID != "2" || !errors.Is(summary.Failures[0].Err, fetch.ErrDownloadFailed) {
		t.Errorf("failures = %+v", summary.Failures)
	}
	if got := h.ledgerIDs(); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Errorf("ledger = %v, want [1 3]", got)
	}
	if _, err := os.Stat(h.path("Two.jpg")); !os.IsNotExist(err) {
		t.Errorf("failed download left a file: %v", err)
	}

	srv.SetFailing("/two_o.jpg", false)
	before := srv.TotalHits()

	summary, err = h.run(h.config())
	if err != nil {
		t.Fatalf("retry Run() error: %v", err)
	}
	if got := srv.TotalHits() - before; got != 1 {
		t.Errorf("retry made %d downloads, want 1", got)
	}
	if summary.Downloaded != 1 || summary.Skipped != 2 {
		t.Errorf("retry summary = %+v", summary)
	}
	if got := h.ledgerIDs(); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("ledger = %v", got)
	}
}

func TestManager_TagFailureNotRecorded(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"))
	h.recorder.Reject = map[string]bool{h.path("One.jpg"): true}

	summary, err := h.run(h.config())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Failed != 1 || !errors.Is(summary.Failures[0].Err, tagging.ErrUnwritableFile) {
		t.Errorf("summary = %+v", summary)
	}
	if got := h.ledgerIDs(); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("ledger = %v, want [2]", got)
	}

	var sawError bool
	for _, e := range h.events {
		if e.Level == LevelError && e.ItemID == "1" {
			sawError = true
		}
	}
	if !sawError {
		t.Error("tag failure was not reported")
	}
	if _, err := os.Stat(h.path("One.jpg")); !os.IsNotExist(err) {
		t.Errorf("untagged file left in place: %v", err)
	}

	// The next run with default settings fetches and tags the item again.
	h.recorder.Reject = nil
	summary, err = h.run(h.config())
	if err != nil {
		t.Fatalf("retry Run() error: %v", err)
	}
	if summary.Downloaded != 1 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("retry summary = %+v", summary)
	}
	if srv.Hits("/one_o.jpg") != 2 {
		t.Errorf("One fetched %d times, want 2", srv.Hits("/one_o.jpg"))
	}
	if got := h.ledgerIDs(); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("ledger = %v, want [1 2]", got)
	}
}

func TestManager_SkipsMalformedAndHidden(t *testing.T) {
	srv := newPayloadServer(t)
	private := photo(srv, "3", "Secret")
	private.Private = true
	h := newHarness(t,
		photo(srv, "1", "One"),
		catalogtest.Photo{ID: "2", Title: "Broken"},
		private,
	)

	summary, err := h.run(h.config())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Malformed != 1 || summary.Hidden != 1 || summary.Downloaded != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if srv.Hits("/secret_o.jpg") != 0 {
		t.Error("private item downloaded")
	}

	cfg := h.config()
	cfg.PublicOnly = false
	summary, err = h.run(cfg)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Hidden != 0 || summary.Downloaded != 1 {
		t.Errorf("summary without filter = %+v", summary)
	}
	if h.catalog.Calls("Permissions") != 3 {
		t.Errorf("Permissions called %d times, want 3", h.catalog.Calls("Permissions"))
	}
}

func TestManager_TrustsExistingFiles(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"))

	if err := os.MkdirAll(h.out, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(h.path("Two.jpg"), []byte("already here"), 0644); err != nil {
		t.Fatal(err)
	}

	summary, err := h.run(h.config())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if srv.Hits("/two_o.jpg") != 0 {
		t.Error("existing file downloaded again")
	}
	if summary.Skipped != 1 || summary.Downloaded != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if data, _ := os.ReadFile(h.path("Two.jpg")); string(data) != "already here" {
		t.Errorf("existing file modified: %q", data)
	}

	var warned bool
	for _, e := range h.events {
		if e.Level == LevelWarning && e.ItemID == "2" {
			warned = true
		}
	}
	if !warned {
		t.Error("existing file outside the ledger was not reported")
	}
}

func TestManager_FileNameCollision(t *testing.T) {
	srv := newPayloadServer(t)
	first := photo(srv, "42", "Sunset")
	second := photo(srv, "44", "Sunset")
	second.Sizes = catalogtest.OneSize(srv.URL + "/other_o.jpg")
	h := newHarness(t, first, second)

	if _, err := h.run(h.config()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	for name, want := range map[string]string{
		"Sunset.jpg":    "/sunset_o.jpg payload",
		"Sunset_44.jpg": "/other_o.jpg payload",
	} {
		data, err := os.ReadFile(h.path(name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", name, data, want)
		}
	}
}

func TestManager_FatalCatalogError(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"))
	h.catalog.Err = catalog.ErrAuthFailed

	_, err := h.run(h.config())
	if !errors.Is(err, catalog.ErrAuthFailed) {
		t.Errorf("Run() error = %v, want ErrAuthFailed", err)
	}
	if len(h.notes) != 0 {
		t.Errorf("notified after fatal error: %v", h.notes)
	}
	if srv.TotalHits() != 0 {
		t.Error("downloads started after fatal error")
	}
}

func TestManager_LedgerWriteFailureIsFatal(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"))

	cfg := h.config()
	stateDir := filepath.Dir(h.ledgerPath)
	if err := os.WriteFile(stateDir, []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}

	summary, err := NewManager(cfg).Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded with unwritable ledger")
	}
	if srv.Hits("/two_o.jpg") != 0 {
		t.Error("run continued after ledger failure")
	}
	if summary.Downloaded != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestManager_Cancel(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := h.config()
	cfg.OnProgress = func(e ProgressEvent) {
		if e.Level == LevelSuccess && e.ItemID == "1" {
			cancel()
		}
	}

	_, err := NewManager(cfg).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if got := h.ledgerIDs(); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("ledger = %v, want [1]", got)
	}
	if srv.Hits("/two_o.jpg") != 0 {
		t.Error("item downloaded after cancellation")
	}
	if len(h.notes) != 1 {
		t.Errorf("notifications = %v, want one", h.notes)
	}
}

func TestManager_DryRun(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"))

	cfg := h.config()
	cfg.DryRun = true
	summary, err := h.run(cfg)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Pending != 2 || summary.Downloaded != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if srv.TotalHits() != 0 {
		t.Error("dry run downloaded")
	}
	if _, err := os.Stat(h.out); !os.IsNotExist(err) {
		t.Error("dry run created the output directory")
	}
	if _, err := os.Stat(h.ledgerPath); !os.IsNotExist(err) {
		t.Error("dry run wrote the ledger")
	}
	if len(h.notes) != 0 {
		t.Errorf("dry run notified: %v", h.notes)
	}
}

func TestManager_Progress(t *testing.T) {
	srv := newPayloadServer(t)
	h := newHarness(t, photo(srv, "1", "One"), photo(srv, "2", "Two"))

	var transfers []TransferEvent
	cfg := h.config()
	cfg.OnTransfer = func(e TransferEvent) { transfers = append(transfers, e) }

	m := NewManager(cfg)
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	p := m.GetProgress()
	if p.ItemsDone != 2 || p.ItemsTotal != 2 {
		t.Errorf("progress = %+v", p)
	}
	if got := m.GetItemNames(); !reflect.DeepEqual(got, []string{"One.jpg", "Two.jpg"}) {
		t.Errorf("GetItemNames() = %v", got)
	}

	if len(transfers) == 0 {
		t.Fatal("no transfer events")
	}
	last := transfers[len(transfers)-1]
	if last.Label() != "2/2" || last.Name != "Two.jpg" {
		t.Errorf("last transfer = %+v", last)
	}
	if last.Written != int64(len("/two_o.jpg payload")) {
		t.Errorf("last transfer written = %d", last.Written)
	}
}

func TestManager_MissingCollaborators(t *testing.T) {
	_, err := NewManager(ManagerConfig{}).Run(context.Background())
	if err == nil {
		t.Error("Run() without collaborators succeeded")
	}
}
