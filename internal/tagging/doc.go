// Package tagging maps records onto destination tags and writes them into
// downloaded files.
//
// # Mapping
//
// Map walks a Table in order and emits one Pair per record field that is set
// and whose tag the destination can write:
//
//	writable := applier.Writable(path)
//	pairs := tagging.Map(rec, tagging.DefaultTable(), writable)
//
// # Writing
//
// An Applier selects a Backend by extension. ExifBackend handles images
// through exiftool; ID3Backend handles MP3 files:
//
//	exif, err := tagging.NewExifBackend("")
//	defer exif.Close()
//	applier := tagging.NewApplier(exif, map[string]tagging.Backend{
//	    ".mp3": tagging.NewID3Backend(),
//	})
//	err = applier.Apply(path, pairs)
//
// Open and save failures wrap ErrUnwritableFile.
package tagging
