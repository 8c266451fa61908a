// Package ioutils provides file system and image processing utilities.
//
// # File Operations
//
//	// Replace a file atomically (temp file + rename)
//	err := ioutils.WriteFileAtomic("/path/to/ledger.json.gz", data, 0600)
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/path/to/new/directory")
//
// # Image Processing
//
// The ImageService downscales oversized photos in place:
//
//	svc := ioutils.NewImageService()
//	changed, err := svc.ResizeFile(ctx, "/photos/Sunset.jpg", 2048)
package ioutils
