package splitter

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docsplit/internal/document"
)

// NewMetadata builds the metadata mapping for a node. length counts the runes
// of text; content defaults to text and may be overridden through extra.
func NewMetadata(filepath string, typ document.NodeType, title, text, xml string, extra map[string]any) document.Metadata {
	base := baseName(filepath)
	md := document.Metadata{
		document.KeyTitle:    title,
		document.KeyLength:   utf8.RuneCountInString(text),
		document.KeyContent:  text,
		document.KeyFilepath: filepath,
		document.KeyPath:     base,
		document.KeyFileName: base,
		document.KeyType:     string(typ),
		document.KeyXML:      xml,
		document.KeySource:   filepath,
	}
	for k, v := range extra {
		md[k] = v
	}
	return md
}

// baseName returns the final element of p. Both slash styles separate, and a
// trailing separator yields "".
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
