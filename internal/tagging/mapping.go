package tagging

import (
	"slices"

	"github.com/handiism/snarf/internal/model"
)

// TagSet is a set of destination tag names.
type TagSet map[string]struct{}

// NewTagSet returns a set holding names.
func NewTagSet(names ...string) TagSet {
	s := make(TagSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s TagSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the names in sorted order.
func (s TagSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Mapping routes one record field to one destination tag.
type Mapping struct {
	Field model.Field
	Tag   string
}

// Table is an ordered list of mappings. Map emits pairs in table order.
type Table []Mapping

// DefaultTable returns the standard photo mapping.
//
//	title       -> Title
//	description -> Caption-Abstract
//	tags        -> Subject
//	latitude    -> GPSLatitude
//	longitude   -> GPSLongitude
//	location    -> Location
//	country     -> Country
//	source_url  -> UserComment
func DefaultTable() Table {
	return Table{
		{Field: model.FieldTitle, Tag: "Title"},
		{Field: model.FieldDescription, Tag: "Caption-Abstract"},
		{Field: model.FieldTags, Tag: "Subject"},
		{Field: model.FieldLatitude, Tag: "GPSLatitude"},
		{Field: model.FieldLongitude, Tag: "GPSLongitude"},
		{Field: model.FieldLocation, Tag: "Location"},
		{Field: model.FieldCountry, Tag: "Country"},
		{Field: model.FieldSourceURL, Tag: "UserComment"},
	}
}

// Pair is one tag assignment. Multi-valued fields carry several values.
type Pair struct {
	Name   string
	Values []string
}

// Map converts rec into tag assignments.
//
// A pair is emitted for each table entry whose field is set on rec and whose
// tag is in writable. Unset fields, unknown fields and unwritable tags are
// left out. The result depends only on the arguments.
//
// Example:
//
//	rec := &model.Record{ID: "42", SourceURL: "https://x/a.jpg", Title: model.Ptr("Sunset")}
//	pairs := Map(rec, DefaultTable(), NewTagSet("Title"))
//	// [{Title [Sunset]}]
func Map(rec *model.Record, table Table, writable TagSet) []Pair {
	var pairs []Pair
	for _, m := range table {
		if !writable.Has(m.Tag) {
			continue
		}
		values, ok := rec.Value(m.Field)
		if !ok {
			continue
		}
		pairs = append(pairs, Pair{Name: m.Tag, Values: values})
	}
	return pairs
}
