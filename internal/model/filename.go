package model

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// maxBaseNameLength keeps file names below the 255 byte limit of common
// filesystems, leaving room for an ID suffix and the extension.
const maxBaseNameLength = 200

var (
	invalidChars     = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	repeatedSpaces   = regexp.MustCompile(`\s+`)
	extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)
)

// Extension returns the file extension of the record's source URL,
// including the dot, or "" if the URL path has none.
//
// Query strings and fragments are ignored:
//
//	"https://example.com/a/sunset_o.jpg?dl=1" // ".jpg"
func (r *Record) Extension() string {
	p := r.SourceURL
	if u, err := url.Parse(r.SourceURL); err == nil {
		p = u.Path
	}
	ext := path.Ext(p)
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// BaseFileName returns the sanitized title plus extension.
//
// Untitled items, and titles that sanitize to nothing, use the item ID.
func (r *Record) BaseFileName() string {
	return r.stem() + r.Extension()
}

func (r *Record) stem() string {
	name := ""
	if r.Title != nil {
		name = sanitizeFileName(*r.Title)
	}
	if name == "" {
		name = sanitizeFileName(r.ID)
	}
	if len(name) > maxBaseNameLength {
		name = strings.TrimRight(truncateUTF8(name, maxBaseNameLength), " ")
	}
	return name
}

// AssignFileNames sets FileName on every record in order.
//
// The first record with a given name keeps it. Later records whose name
// collides (case-insensitively, so the result is portable) get the item ID
// appended: "Sunset.jpg", "Sunset_43.jpg". If that name is taken too, a
// counter follows the ID: "Sunset_43_2.jpg". No two records share a name.
func AssignFileNames(records []*Record) {
	taken := make(map[string]struct{}, len(records))
	free := func(name string) bool {
		_, dup := taken[strings.ToLower(name)]
		return !dup
	}

	for _, rec := range records {
		name := rec.BaseFileName()
		if !free(name) {
			base := rec.stem() + "_" + sanitizeFileName(rec.ID)
			name = base + rec.Extension()
			for n := 2; !free(name); n++ {
				name = base + "_" + strconv.Itoa(n) + rec.Extension()
			}
		}
		taken[strings.ToLower(name)] = struct{}{}
		rec.FileName = name
	}
}

// sanitizeFileName removes or replaces characters that are invalid in file names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Leading and trailing whitespace is removed
//
// Example:
//
//	sanitizeFileName("Sunset: Part 1/2") // Returns "Sunset_ Part 1_2"
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingDots.ReplaceAllString(name, "")
	return strings.TrimRight(name, " ")
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
