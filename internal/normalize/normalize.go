package normalize

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/handiism/snarf/internal/catalog"
	"github.com/handiism/snarf/internal/model"
)

// ErrMalformedItem indicates a catalog item without an ID or without a
// downloadable source. The item is skipped; the run continues.
var ErrMalformedItem = errors.New("malformed item")

// Normalizer turns catalog responses into model.Record values.
type Normalizer struct {
	catalog catalog.Catalog
}

// New creates a Normalizer reading from c.
func New(c catalog.Catalog) *Normalizer {
	return &Normalizer{catalog: c}
}

// Normalize fetches the metadata of item and builds its record.
//
// Location is only queried when includeGeo is true; otherwise every geo
// field of the record stays nil. Missing attributes leave the matching
// field nil.
//
// Returns an error wrapping ErrMalformedItem for items that cannot be
// downloaded, and the wrapped catalog error for anything else.
func (n *Normalizer) Normalize(ctx context.Context, item catalog.Item, includeGeo bool) (*model.Record, error) {
	if strings.TrimSpace(item.ID) == "" {
		return nil, fmt.Errorf("%w: missing id (title %q)", ErrMalformedItem, item.Title)
	}

	sizes, err := n.catalog.Sizes(ctx, item.ID)
	if err != nil {
		return nil, wrapCatalogError(item.ID, "sizes", err)
	}
	source := largestSource(sizes)
	if source == "" {
		return nil, fmt.Errorf("%w: %s has no source url", ErrMalformedItem, item.ID)
	}

	info, err := n.catalog.Info(ctx, item.ID)
	if err != nil {
		return nil, wrapCatalogError(item.ID, "info", err)
	}

	rec := &model.Record{
		ID:          item.ID,
		SourceURL:   source,
		Title:       optText(info.Title),
		Description: optText(info.Description),
		Tags:        decodeTags(info.Tags),
	}
	if rec.Title == nil {
		rec.Title = optText(item.Title)
	}

	if !includeGeo {
		return rec, nil
	}

	loc, err := n.catalog.Location(ctx, item.ID)
	switch {
	case errors.Is(err, catalog.ErrNoLocation):
		return rec, nil
	case err != nil:
		return nil, wrapCatalogError(item.ID, "location", err)
	}

	rec.Latitude = loc.Latitude
	rec.Longitude = loc.Longitude
	rec.Country = optText(loc.Country)
	rec.Location = joinLocation(loc.Locality, loc.Region, loc.Country)
	return rec, nil
}

// wrapCatalogError reports an item that disappeared between listing and
// normalization as malformed; every other failure is passed through.
func wrapCatalogError(id, what string, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%w: %s: %v", ErrMalformedItem, id, err)
	}
	return fmt.Errorf("failed to get %s of %s: %w", what, id, err)
}

// largestSource returns the source of the last size that has one.
func largestSource(sizes []catalog.Size) string {
	for i := len(sizes) - 1; i >= 0; i-- {
		src := strings.ReplaceAll(sizes[i].Source, " ", "")
		if src == "" {
			continue
		}
		if decoded, err := url.PathUnescape(src); err == nil {
			src = decoded
		}
		return src
	}
	return ""
}

// joinLocation joins the non-empty parts with ", ". All parts empty gives nil.
func joinLocation(locality, region, country string) *string {
	var parts []string
	for _, p := range []string{locality, region, country} {
		if p = decodeText(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return model.Ptr(strings.Join(parts, ", "))
}

func decodeTags(raw []string) []string {
	var tags []string
	for _, t := range raw {
		if t = decodeText(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func optText(s string) *string {
	if s = decodeText(s); s == "" {
		return nil
	}
	return &s
}

// decodeText undoes percent-escaping ("+" is a space). Text that does not
// decode is kept as received.
//
//	decodeText("Caf%C3%A9+du+Port") // "Café du Port"
//	decodeText("100%")              // "100%"
func decodeText(s string) string {
	s = strings.TrimSpace(s)
	if decoded, err := url.QueryUnescape(s); err == nil {
		return strings.TrimSpace(decoded)
	}
	return s
}
