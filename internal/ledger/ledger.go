package ledger

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	ioutils "github.com/handiism/snarf/internal/io"
)

const formatVersion = 1

// ErrCorruptLedger is returned by Load when the stored file cannot be
// decompressed or decoded. Callers abort rather than lose resumption state.
var ErrCorruptLedger = errors.New("ledger file is corrupt")

// Ledger is the durable set of item IDs whose download and tagging have
// completed.
//
// A Ledger is owned by a single goroutine; it does no locking. Every Record
// call rewrites the whole file atomically, so a crash loses at most the item
// that was in flight.
//
// Example:
//
//	l, err := ledger.Load(ledger.PathFor(dir, token))
//	if err != nil {
//	    return err
//	}
//	if !l.Contains(rec.ID) {
//	    // download and tag ...
//	    if err := l.Record(rec.ID); err != nil {
//	        return err
//	    }
//	}
type Ledger struct {
	path string
	ids  map[string]struct{}
}

type fileFormat struct {
	Version int      `json:"version"`
	IDs     []string `json:"ids"`
}

// PathFor returns the ledger path for a credential inside dir.
//
// The name is derived from a SHA-256 of the credential so that several
// accounts on one machine get separate ledgers and the credential itself is
// not written to disk again.
func PathFor(dir, credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return filepath.Join(dir, "ledger-"+hex.EncodeToString(sum[:8])+".json.gz")
}

// Load reads the ledger at path. A missing file yields an empty ledger.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path, ids: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	ids, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptLedger, path, err)
	}
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return l, nil
}

// Path returns the file the ledger persists to.
func (l *Ledger) Path() string {
	return l.path
}

// Contains reports whether id has been recorded.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Len returns the number of recorded IDs.
func (l *Ledger) Len() int {
	return len(l.ids)
}

// IDs returns the recorded IDs in sorted order.
func (l *Ledger) IDs() []string {
	ids := make([]string, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Record adds id and persists the ledger.
//
// Recording an ID that is already present leaves the file untouched. If
// persisting fails the ID is removed again, so the in-memory set never claims
// more than the file does.
func (l *Ledger) Record(id string) error {
	if l.Contains(id) {
		return nil
	}
	l.ids[id] = struct{}{}
	if err := l.Flush(); err != nil {
		delete(l.ids, id)
		return err
	}
	return nil
}

// Flush writes the full set to disk, replacing the previous file atomically.
func (l *Ledger) Flush() error {
	data, err := encode(l.IDs())
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := ioutils.EnsureDir(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	if err := ioutils.WriteFileAtomic(l.path, data, 0600); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

func encode(ids []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(fileFormat{Version: formatVersion, IDs: ids}); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) ([]string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}

	var f fileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Version != formatVersion {
		return nil, fmt.Errorf("unsupported version %d", f.Version)
	}
	return f.IDs, nil
}
