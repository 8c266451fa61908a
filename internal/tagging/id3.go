package tagging

import (
	"slices"
	"strings"

	"github.com/bogem/id3v2"
)

var id3Writable = NewTagSet(
	"Title",
	"Caption-Abstract",
	"Subject",
	"Location",
	"Country",
	"UserComment",
)

// ID3Backend writes ID3v2 frames into MP3 files.
//
// Title goes to TIT2 and Caption-Abstract to a COMM frame. The remaining
// writable tags become TXXX frames described by the tag name. GPS tags have
// no ID3 home and are not writable.
type ID3Backend struct{}

// NewID3Backend creates an ID3Backend.
func NewID3Backend() *ID3Backend {
	return &ID3Backend{}
}

// WritableTags implements Backend.
func (b *ID3Backend) WritableTags() TagSet {
	return id3Writable
}

// Open implements Backend. A file without a tag gets an empty one.
func (b *ID3Backend) Open(path string) (Container, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	return &id3Container{tag: tag}, nil
}

type id3Container struct {
	tag *id3v2.Tag

	comment string
	hasNote bool
	txxx    map[string]string
}

// Set buffers TXXX and COMM values until Save so that retagging replaces
// the frames it wrote before instead of adding duplicates.
func (c *id3Container) Set(name string, values []string) {
	value := strings.Join(values, "; ")

	switch name {
	case "Title":
		c.tag.SetTitle(value)
	case "Caption-Abstract":
		c.comment, c.hasNote = value, true
	default:
		if !id3Writable.Has(name) {
			return
		}
		if c.txxx == nil {
			c.txxx = make(map[string]string)
		}
		c.txxx[name] = value
	}
}

func (c *id3Container) Save() error {
	if c.hasNote {
		id := c.tag.CommonID("Comments")
		kept := c.tag.GetFrames(id)
		c.tag.DeleteFrames(id)
		for _, f := range kept {
			if cf, ok := f.(id3v2.CommentFrame); ok && cf.Language == "eng" && cf.Description == "" {
				continue
			}
			c.tag.AddFrame(id, f)
		}
		c.tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Text:     c.comment,
		})
	}

	if len(c.txxx) > 0 {
		id := c.tag.CommonID("User defined text information frame")
		kept := c.tag.GetFrames(id)
		c.tag.DeleteFrames(id)
		for _, f := range kept {
			if uf, ok := f.(id3v2.UserDefinedTextFrame); ok {
				if _, replaced := c.txxx[uf.Description]; replaced {
					continue
				}
			}
			c.tag.AddFrame(id, f)
		}
		for _, name := range sortedKeys(c.txxx) {
			c.tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    id3v2.EncodingUTF8,
				Description: name,
				Value:       c.txxx[name],
			})
		}
	}

	return c.tag.Save()
}

func (c *id3Container) Close() error {
	return c.tag.Close()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
