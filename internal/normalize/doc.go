// Package normalize builds canonical records from catalog responses.
//
// A Normalizer queries sizes and info for every item and, for the geotagged
// partition only, the location:
//
//	n := normalize.New(client)
//	rec, err := n.Normalize(ctx, item, true)
//	if errors.Is(err, normalize.ErrMalformedItem) {
//	    // skip the item
//	}
//
// Text arrives percent-escaped and is decoded before it is stored. Attributes
// the catalog does not provide stay nil on the record, so "no location" and
// "empty location" never look the same.
package normalize
