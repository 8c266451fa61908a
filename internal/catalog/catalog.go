// Package catalog defines how snarf talks to a remote photo catalog.
//
// The sync engine only depends on the Catalog interface; the flickr
// subpackage provides the REST implementation and catalogtest an in-memory
// one for tests.
package catalog

import (
	"context"
	"errors"
)

var (
	// ErrAuthFailed indicates the credential was rejected by the service.
	ErrAuthFailed = errors.New("catalog authentication failed")

	// ErrNoLocation indicates an item has no location information.
	ErrNoLocation = errors.New("item has no location")

	// ErrNotFound indicates the item does not exist or is not visible.
	ErrNotFound = errors.New("item not found")
)

// Item is a handle to one remote item as returned by the list calls.
type Item struct {
	ID    string
	Title string
}

// Permissions describes who may see an item.
type Permissions struct {
	IsPublic bool
	IsFriend bool
	IsFamily bool
}

// Size is one downloadable rendition of an item.
type Size struct {
	Label  string
	Width  int
	Height int
	Source string
}

// Info holds the descriptive metadata of an item. Text is in wire encoding
// and may be percent-escaped; empty strings mean the attribute is absent.
type Info struct {
	Title       string
	Description string
	Tags        []string
}

// Location holds the geodata of an item. Nil coordinates and empty strings
// mean the attribute is absent.
type Location struct {
	Latitude  *float64
	Longitude *float64
	Locality  string
	Region    string
	Country   string
}

// Catalog is the remote catalog as seen by the sync engine.
//
// Every method may fail with ErrAuthFailed or a wrapped transport error;
// Location returns ErrNoLocation for items without geodata.
type Catalog interface {
	// ListWithGeo returns the caller's items that carry geodata.
	ListWithGeo(ctx context.Context) ([]Item, error)

	// ListWithoutGeo returns the caller's items without geodata.
	ListWithoutGeo(ctx context.Context) ([]Item, error)

	// Permissions returns the visibility of an item.
	Permissions(ctx context.Context, id string) (Permissions, error)

	// Sizes returns the renditions of an item ordered smallest to largest.
	Sizes(ctx context.Context, id string) ([]Size, error)

	// Info returns title, description and tags of an item.
	Info(ctx context.Context, id string) (Info, error)

	// Location returns the geodata of an item.
	Location(ctx context.Context, id string) (Location, error)
}
