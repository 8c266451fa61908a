// Package flickr implements catalog.Catalog for a Flickr-compatible REST API.
//
//	client := flickr.NewClient(flickr.Options{
//	    APIKey:            settings.APIKey,
//	    Token:             token,
//	    RequestsPerSecond: 5,
//	})
//	user, err := client.Login(ctx)
//	items, err := client.ListWithGeo(ctx)
//
// Service errors are returned as *APIError. Authentication failures match
// catalog.ErrAuthFailed with errors.Is; a photo without geodata makes
// Location return an error matching catalog.ErrNoLocation.
package flickr
