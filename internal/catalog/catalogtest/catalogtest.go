// Package catalogtest provides an in-memory catalog.Catalog for tests.
package catalogtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/handiism/snarf/internal/catalog"
)

// Photo is one item held by Catalog.
type Photo struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	Private     bool

	// Sizes are returned as-is; set Source to "" to simulate a missing payload.
	Sizes []catalog.Size

	// Geo marks the item as geotagged. Location is only served for such items.
	Geo      bool
	Location catalog.Location
}

// Catalog is a catalog.Catalog backed by a slice of photos.
//
// Err, when set, is returned by every call; FailOn returns an error for
// calls on specific item IDs. Calls counts method invocations by name.
type Catalog struct {
	Photos []Photo
	Err    error
	FailOn map[string]error

	mu    sync.Mutex
	calls map[string]int
}

// New returns a Catalog holding photos.
func New(photos ...Photo) *Catalog {
	return &Catalog{Photos: photos}
}

// Calls returns how often method was invoked.
func (c *Catalog) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *Catalog) track(method, id string) error {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[method]++
	c.mu.Unlock()

	if c.Err != nil {
		return c.Err
	}
	if err, ok := c.FailOn[id]; ok {
		return err
	}
	return nil
}

func (c *Catalog) find(id string) (Photo, error) {
	for _, p := range c.Photos {
		if p.ID == id {
			return p, nil
		}
	}
	return Photo{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
}

func (c *Catalog) list(geo bool) []catalog.Item {
	var items []catalog.Item
	for _, p := range c.Photos {
		if p.Geo == geo {
			items = append(items, catalog.Item{ID: p.ID, Title: p.Title})
		}
	}
	return items
}

func (c *Catalog) ListWithGeo(ctx context.Context) ([]catalog.Item, error) {
	if err := c.track("ListWithGeo", ""); err != nil {
		return nil, err
	}
	return c.list(true), nil
}

func (c *Catalog) ListWithoutGeo(ctx context.Context) ([]catalog.Item, error) {
	if err := c.track("ListWithoutGeo", ""); err != nil {
		return nil, err
	}
	return c.list(false), nil
}

func (c *Catalog) Permissions(ctx context.Context, id string) (catalog.Permissions, error) {
	if err := c.track("Permissions", id); err != nil {
		return catalog.Permissions{}, err
	}
	p, err := c.find(id)
	if err != nil {
		return catalog.Permissions{}, err
	}
	return catalog.Permissions{IsPublic: !p.Private}, nil
}

func (c *Catalog) Sizes(ctx context.Context, id string) ([]catalog.Size, error) {
	if err := c.track("Sizes", id); err != nil {
		return nil, err
	}
	p, err := c.find(id)
	if err != nil {
		return nil, err
	}
	return p.Sizes, nil
}

func (c *Catalog) Info(ctx context.Context, id string) (catalog.Info, error) {
	if err := c.track("Info", id); err != nil {
		return catalog.Info{}, err
	}
	p, err := c.find(id)
	if err != nil {
		return catalog.Info{}, err
	}
	return catalog.Info{Title: p.Title, Description: p.Description, Tags: p.Tags}, nil
}

func (c *Catalog) Location(ctx context.Context, id string) (catalog.Location, error) {
	if err := c.track("Location", id); err != nil {
		return catalog.Location{}, err
	}
	p, err := c.find(id)
	if err != nil {
		return catalog.Location{}, err
	}
	if !p.Geo {
		return catalog.Location{}, catalog.ErrNoLocation
	}
	return p.Location, nil
}

// OneSize returns a single rendition list pointing at url.
func OneSize(url string) []catalog.Size {
	return []catalog.Size{{Label: "Original", Source: url}}
}
