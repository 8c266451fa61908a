package model

import (
	"strconv"
)

// Field enumerates the canonical metadata fields of a Record.
//
// Fields are plain data: the tag mapper looks them up in its table and asks
// the record for the value with Record.Value. There is no reflection involved.
type Field int

const (
	FieldTitle Field = iota
	FieldDescription
	FieldTags
	FieldLatitude
	FieldLongitude
	FieldLocation
	FieldCountry
	FieldSourceURL
)

var fieldNames = map[Field]string{
	FieldTitle:       "title",
	FieldDescription: "description",
	FieldTags:        "tags",
	FieldLatitude:    "latitude",
	FieldLongitude:   "longitude",
	FieldLocation:    "location",
	FieldCountry:     "country",
	FieldSourceURL:   "source_url",
}

// String returns the canonical lower-case name of the field.
func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "field(" + strconv.Itoa(int(f)) + ")"
}

// Record is the normalized metadata of one remote catalog item.
//
// Record is independent of the remote service's wire format. Optional fields
// are pointers (or a nil slice): nil means the item does not have the value,
// which is different from having an empty value. In particular a record built
// without geodata leaves Latitude, Longitude, Location and Country nil.
//
// Example:
//
//	rec := &Record{
//	    ID:        "42",
//	    SourceURL: "https://live.example.com/42/sunset_o.jpg",
//	    Title:     Ptr("Sunset"),
//	}
//	rec.FileName = rec.BaseFileName() // "Sunset.jpg"
type Record struct {
	// ID is the stable identifier from the remote service. Never empty.
	ID string

	// SourceURL is the resolved payload location. Never empty.
	SourceURL string

	// Title is the display name, also used to derive the local file name.
	Title *string

	// Description is free text.
	Description *string

	// Tags holds free-text labels in catalog order.
	Tags []string

	// Latitude and Longitude are decimal degrees.
	Latitude  *float64
	Longitude *float64

	// Location is "locality, region, country" with empty parts left out.
	Location *string

	// Country is the country name.
	Country *string

	// FileName is the destination file name (no directory) assigned by the
	// orchestrator after collision resolution.
	FileName string
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// HasGeo reports whether any geo field is set.
func (r *Record) HasGeo() bool {
	return r.Latitude != nil || r.Longitude != nil || r.Location != nil || r.Country != nil
}

// DisplayName returns the title, or the ID for untitled items.
func (r *Record) DisplayName() string {
	if r.Title != nil && *r.Title != "" {
		return *r.Title
	}
	return r.ID
}

// Value returns the value of field f as strings.
//
// ok is false when the field is unset on this record; an unset field never
// produces a value. Scalar fields yield a single element, Tags yields one
// element per label. Unknown fields are reported as unset.
func (r *Record) Value(f Field) (values []string, ok bool) {
	switch f {
	case FieldTitle:
		return optString(r.Title)
	case FieldDescription:
		return optString(r.Description)
	case FieldTags:
		if r.Tags == nil {
			return nil, false
		}
		return append([]string(nil), r.Tags...), true
	case FieldLatitude:
		return optFloat(r.Latitude)
	case FieldLongitude:
		return optFloat(r.Longitude)
	case FieldLocation:
		return optString(r.Location)
	case FieldCountry:
		return optString(r.Country)
	case FieldSourceURL:
		if r.SourceURL == "" {
			return nil, false
		}
		return []string{r.SourceURL}, true
	}
	return nil, false
}

func optString(s *string) ([]string, bool) {
	if s == nil {
		return nil, false
	}
	return []string{*s}, true
}

func optFloat(f *float64) ([]string, bool) {
	if f == nil {
		return nil, false
	}
	return []string{strconv.FormatFloat(*f, 'f', -1, 64)}, true
}
