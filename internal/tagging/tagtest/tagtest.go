// Package tagtest provides a recording tagging.Backend for tests.
package tagtest

import (
	"errors"
	"os"
	"sync"

	"github.com/handiism/snarf/internal/tagging"
)

// ErrRejected is returned by Open for paths listed in Recorder.Reject.
var ErrRejected = errors.New("rejected by recorder")

// Recorder remembers every saved tag write instead of touching files.
//
// Open fails for missing files and for paths in Reject. Writes holds one
// entry per successful Save, keyed by path, with the latest values per tag.
type Recorder struct {
	Tags   tagging.TagSet
	Reject map[string]bool

	mu     sync.Mutex
	writes map[string]map[string][]string
	saves  int
}

// NewRecorder returns a Recorder accepting the tags of the default table.
func NewRecorder() *Recorder {
	var names []string
	for _, m := range tagging.DefaultTable() {
		names = append(names, m.Tag)
	}
	return &Recorder{Tags: tagging.NewTagSet(names...)}
}

// WritableTags implements tagging.Backend.
func (r *Recorder) WritableTags() tagging.TagSet {
	return r.Tags
}

// Open implements tagging.Backend.
func (r *Recorder) Open(path string) (tagging.Container, error) {
	if r.Reject[path] {
		return nil, ErrRejected
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &container{r: r, path: path, pending: map[string][]string{}}, nil
}

// Written returns the tags saved for path, or nil if none were.
func (r *Recorder) Written(path string) map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes[path]
}

// Saves returns the number of successful saves.
func (r *Recorder) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type container struct {
	r       *Recorder
	path    string
	pending map[string][]string
}

func (c *container) Set(name string, values []string) {
	c.pending[name] = append([]string(nil), values...)
}

func (c *container) Save() error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if c.r.writes == nil {
		c.r.writes = make(map[string]map[string][]string)
	}
	w := c.r.writes[c.path]
	if w == nil {
		w = make(map[string][]string)
		c.r.writes[c.path] = w
	}
	for k, v := range c.pending {
		w[k] = v
	}
	c.r.saves++
	return nil
}

func (c *container) Close() error {
	return nil
}
