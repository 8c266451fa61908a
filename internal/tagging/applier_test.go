package tagging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// stubBackend records which backend handled a file.
type stubBackend struct {
	name    string
	tags    TagSet
	openErr error
	saveErr error
	opened  []string
	saved   map[string][]string
	closed  int
}

func (b *stubBackend) WritableTags() TagSet { return b.tags }

func (b *stubBackend) Open(path string) (Container, error) {
	b.opened = append(b.opened, path)
	if b.openErr != nil {
		return nil, b.openErr
	}
	return &stubContainer{b: b, set: map[string][]string{}}, nil
}

type stubContainer struct {
	b   *stubBackend
	set map[string][]string
}

func (c *stubContainer) Set(name string, values []string) { c.set[name] = values }

func (c *stubContainer) Save() error {
	if c.b.saveErr != nil {
		return c.b.saveErr
	}
	c.b.saved = c.set
	return nil
}

func (c *stubContainer) Close() error {
	c.b.closed++
	return nil
}

func TestApplier_SelectsBackendByExtension(t *testing.T) {
	images := &stubBackend{name: "images", tags: NewTagSet("GPSLatitude")}
	audio := &stubBackend{name: "audio", tags: NewTagSet("Title")}
	a := NewApplier(images, map[string]Backend{".MP3": audio})

	tests := []struct {
		path string
		want *stubBackend
	}{
		{"photo.jpg", images},
		{"clip.mp3", audio},
		{"LOUD.MP3", audio},
		{"noext", images},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := a.backendFor(tt.path); got != tt.want {
				t.Errorf("backendFor(%q) = %v, want %v", tt.path, got.(*stubBackend).name, tt.want.name)
			}
		})
	}

	if !a.Writable("a.mp3").Has("Title") || a.Writable("a.mp3").Has("GPSLatitude") {
		t.Error("Writable(a.mp3) should come from the audio backend")
	}
}

func TestApplier_Apply(t *testing.T) {
	b := &stubBackend{tags: NewTagSet("Title")}
	a := NewApplier(b, nil)

	pairs := []Pair{{Name: "Title", Values: []string{"Sunset"}}}
	if err := a.Apply("Sunset.jpg", pairs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.saved["Title"]; len(got) != 1 || got[0] != "Sunset" {
		t.Errorf("saved Title = %v", got)
	}
	if b.closed != 1 {
		t.Errorf("closed = %d, want 1", b.closed)
	}
}

func TestApplier_NoPairsLeavesFileAlone(t *testing.T) {
	b := &stubBackend{}
	a := NewApplier(b, nil)

	if err := a.Apply("x.jpg", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.opened) != 0 {
		t.Errorf("backend opened %v", b.opened)
	}
}

func TestApplier_Errors(t *testing.T) {
	pairs := []Pair{{Name: "Title", Values: []string{"x"}}}

	tests := []struct {
		name    string
		backend *stubBackend
	}{
		{"open fails", &stubBackend{openErr: errors.New("permission denied")}},
		{"save fails", &stubBackend{saveErr: errors.New("disk full")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewApplier(tt.backend, nil).Apply("x.jpg", pairs)
			if !errors.Is(err, ErrUnwritableFile) {
				t.Errorf("error = %v, want ErrUnwritableFile", err)
			}
		})
	}

	if err := NewApplier(nil, nil).Apply("x.jpg", pairs); !errors.Is(err, ErrUnwritableFile) {
		t.Errorf("no backend: error = %v, want ErrUnwritableFile", err)
	}
}

func TestHemisphere(t *testing.T) {
	tests := []struct {
		coord string
		want  string
	}{
		{"51.45", "N"},
		{"-2.58", "S"},
		{" -0.1", "S"},
		{"0", "N"},
	}
	for _, tt := range tests {
		if got := hemisphere(tt.coord, "N", "S"); got != tt.want {
			t.Errorf("hemisphere(%q) = %q, want %q", tt.coord, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
