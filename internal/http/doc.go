// Package http fetches payloads from their source URLs.
//
// The Client in this package handles:
//   - User-Agent headers
//   - A whole-request timeout
//   - File downloads with progress tracking
//   - Complete-or-nothing destination files via a ".part" sibling
//
// # Basic Usage
//
//	client := http.NewClient(10*time.Minute, "snarf/1.0")
//
//	err := client.DownloadFile(ctx, rec.SourceURL, "/photos/Sunset.jpg", func(written, total int64) {
//	    // total is -1 when the server sends no Content-Length
//	})
//	if errors.Is(err, http.ErrDownloadFailed) {
//	    // per-item failure
//	}
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
