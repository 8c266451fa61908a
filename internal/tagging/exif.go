package tagging

import (
	"fmt"
	"os"
	"strings"

	"github.com/barasher/go-exiftool"
)

var exifWritable = NewTagSet(
	"Title",
	"Description",
	"Caption-Abstract",
	"ImageDescription",
	"Subject",
	"Keywords",
	"GPSLatitude",
	"GPSLatitudeRef",
	"GPSLongitude",
	"GPSLongitudeRef",
	"Location",
	"City",
	"State",
	"Country",
	"UserComment",
	"Artist",
	"Copyright",
)

// ExifBackend writes EXIF, IPTC and XMP tags through a long-lived exiftool
// process. Close must be called to stop the process.
type ExifBackend struct {
	et *exiftool.Exiftool
}

// NewExifBackend starts exiftool. binary overrides the executable looked up
// in PATH.
func NewExifBackend(binary string) (*ExifBackend, error) {
	var opts []func(*exiftool.Exiftool) error
	if binary != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(binary))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start exiftool: %w", err)
	}
	return &ExifBackend{et: et}, nil
}

// WritableTags implements Backend.
func (b *ExifBackend) WritableTags() TagSet {
	return exifWritable
}

// Open implements Backend.
func (b *ExifBackend) Open(path string) (Container, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file")
	}
	return &exifContainer{
		et: b.et,
		fm: exiftool.FileMetadata{File: path, Fields: map[string]interface{}{}},
	}, nil
}

// Close stops the exiftool process.
func (b *ExifBackend) Close() error {
	return b.et.Close()
}

type exifContainer struct {
	et *exiftool.Exiftool
	fm exiftool.FileMetadata
}

func (c *exifContainer) Set(name string, values []string) {
	switch len(values) {
	case 0:
		return
	case 1:
		c.fm.SetString(name, values[0])
	default:
		c.fm.SetStrings(name, values)
	}

	switch name {
	case "GPSLatitude":
		c.fm.SetString("GPSLatitudeRef", hemisphere(values[0], "N", "S"))
	case "GPSLongitude":
		c.fm.SetString("GPSLongitudeRef", hemisphere(values[0], "E", "W"))
	}
}

func (c *exifContainer) Save() error {
	batch := []exiftool.FileMetadata{c.fm}
	c.et.WriteMetadata(batch)
	return batch[0].Err
}

func (c *exifContainer) Close() error {
	return nil
}

// hemisphere picks the GPS reference from the sign of a decimal coordinate.
func hemisphere(coord, positive, negative string) string {
	if strings.HasPrefix(strings.TrimSpace(coord), "-") {
		return negative
	}
	return positive
}
