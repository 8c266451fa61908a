package tagging

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Applier picks a Backend by file extension and writes tag pairs.
//
// Example:
//
//	applier := tagging.NewApplier(exif, map[string]tagging.Backend{".mp3": id3})
//	pairs := tagging.Map(rec, tagging.DefaultTable(), applier.Writable(path))
//	if err := applier.Apply(path, pairs); err != nil {
//	    // errors.Is(err, tagging.ErrUnwritableFile)
//	}
type Applier struct {
	fallback Backend
	byExt    map[string]Backend
}

// NewApplier creates an Applier. byExt keys are extensions with the dot
// (".mp3"), matched case-insensitively; other files use fallback.
func NewApplier(fallback Backend, byExt map[string]Backend) *Applier {
	normalized := make(map[string]Backend, len(byExt))
	for ext, b := range byExt {
		normalized[strings.ToLower(ext)] = b
	}
	return &Applier{fallback: fallback, byExt: normalized}
}

func (a *Applier) backendFor(path string) Backend {
	if b, ok := a.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return b
	}
	return a.fallback
}

// Writable returns the tags that can be written to the file at path.
func (a *Applier) Writable(path string) TagSet {
	if b := a.backendFor(path); b != nil {
		return b.WritableTags()
	}
	return TagSet{}
}

// Apply writes pairs into the file at path and saves it.
//
// No pairs means nothing to write; the file is left untouched.
func (a *Applier) Apply(path string, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	b := a.backendFor(path)
	if b == nil {
		return fmt.Errorf("%w: %s: no tag backend", ErrUnwritableFile, path)
	}

	c, err := b.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritableFile, path, err)
	}
	defer c.Close()

	for _, p := range pairs {
		c.Set(p.Name, p.Values)
	}

	if err := c.Save(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritableFile, path, err)
	}
	return nil
}
