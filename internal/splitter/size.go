package splitter

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docsplit/internal/document"
)

// DefaultSize is the default soft bound, in runes, on merged chunk text.
const DefaultSize = 768

// SizeSplitter merges consecutive paragraphs into chunks bounded by Size.
// A paragraph longer than Size on its own is emitted whole. Chunks never
// overlap.
type SizeSplitter struct {
	Size int
	IDs  IDGenerator
	Log  *slog.Logger
}

func NewSizeSplitter(size int, ids IDGenerator, log *slog.Logger) *SizeSplitter {
	return &SizeSplitter{Size: size, IDs: ids, Log: log}
}

func (s *SizeSplitter) Name() string { return ModeSize }

// Split never fails; the error is part of the Splitter contract.
func (s *SizeSplitter) Split(filepath string, paragraphs []document.Paragraph) ([]document.Node, error) {
	size := s.Size
	if size <= 0 {
		size = DefaultSize
	}
	log := logger(s.Log).With("file", filepath, "mode", ModeSize)
	log.Info("splitting document", "paragraphs", len(paragraphs), "size", size)

	ids := idsOrDefault(s.IDs)
	nodes := make([]document.Node, 0)
	var acc chunk
	flush := func() {
		if text := acc.text(); text != "" {
			nodes = append(nodes, document.Node{
				ID:       ids.NewID(text),
				Text:     text,
				Metadata: NewMetadata(filepath, document.TypeContent, "", text, text, nil),
			})
		}
		acc.reset()
	}

	for i := 0; i < len(paragraphs); {
		acc.open()
		for i < len(paragraphs) && acc.runes < size {
			text := strings.TrimSpace(paragraphs[i].Text)
			i++
			if text == "" {
				continue
			}
			n := utf8.RuneCountInString(text)
			if n > size {
				flush()
				log.Warn("paragraph exceeds chunk size, emitting it whole", "runes", n, "preview", preview(text, 50))
				acc.add(text, n)
				break
			}
			if acc.runes+n >= size {
				flush()
			}
			acc.add(text, n)
		}
		flush()
	}

	log.Info("split complete", "nodes", len(nodes))
	return nodes, nil
}

// chunk is the newline-joined accumulator of the size splitter. A chunk
// opened at the top of the outer loop counts a leading separator toward the
// bound; one reseeded after a mid-loop flush does not.
type chunk struct {
	lines   []string
	runes   int
	leading bool
}

func (c *chunk) open() {
	c.reset()
	c.leading = true
}

func (c *chunk) add(text string, n int) {
	if len(c.lines) > 0 || c.leading {
		c.runes++ // separator
	}
	c.leading = false
	c.lines = append(c.lines, text)
	c.runes += n
}

func (c *chunk) text() string {
	return strings.TrimSpace(strings.Join(c.lines, "\n"))
}

func (c *chunk) reset() {
	c.lines = c.lines[:0]
	c.runes = 0
	c.leading = false
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
