package tagging

import "errors"

// ErrUnwritableFile indicates a file whose tags could not be opened or saved.
var ErrUnwritableFile = errors.New("unwritable file")

// Backend writes tags into one family of file formats.
type Backend interface {
	// WritableTags returns the tag names the backend can set.
	WritableTags() TagSet

	// Open prepares the tag container of the file at path.
	Open(path string) (Container, error)
}

// Container is an open tag container. Set calls are buffered until Save.
type Container interface {
	Set(name string, values []string)
	Save() error
	Close() error
}
