package splitter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docsplit/internal/document"
)

// LongSectionRunes is the plain-text size above which a section's content
// node carries its markdown outline instead of the flat text.
const LongSectionRunes = 2000

// Sections with more sub-headings than this keep only the outline in their
// markdown block.
const maxSubHeadingsWithBody = 2

// DefaultHeadingTypes prefers smaller headings before larger ones.
var DefaultHeadingTypes = []string{"Heading 3", "Heading 2"}

// HeadingSplitter cuts a document into sections at paragraphs whose style
// equals one of HeadingTypes. Each heading type is an independent pass over
// the whole document and the passes are concatenated, so the same text can
// appear under several granularities.
type HeadingSplitter struct {
	HeadingTypes []string
	IDs          IDGenerator
	Log          *slog.Logger
}

func NewHeadingSplitter(headingTypes []string, ids IDGenerator, log *slog.Logger) *HeadingSplitter {
	return &HeadingSplitter{HeadingTypes: headingTypes, IDs: ids, Log: log}
}

func (s *HeadingSplitter) Name() string { return ModeHeading }

// Split emits a content node and a title node for every section found.
// A section whose heading text is blank emits no title node, and one with
// no plain text emits no content node, so such sections yield fewer than
// two nodes.
func (s *HeadingSplitter) Split(filepath string, paragraphs []document.Paragraph) ([]document.Node, error) {
	log := logger(s.Log).With("file", filepath, "mode", ModeHeading)
	log.Info("splitting document", "paragraphs", len(paragraphs))

	headingTypes := s.HeadingTypes
	if len(headingTypes) == 0 {
		headingTypes = DefaultHeadingTypes
	}
	ids := idsOrDefault(s.IDs)

	nodes := make([]document.Node, 0)
	for _, headType := range headingTypes {
		log.Debug("scanning heading type", "heading_type", headType)
		sections := 0
		for i := 0; i < len(paragraphs); {
			if paragraphs[i].StyleName != headType {
				i++
				continue
			}
			sec, next, err := readSection(paragraphs, i, headType)
			if err != nil {
				return nil, fmt.Errorf("split %s by %q: %w", filepath, headType, err)
			}
			nodes = append(nodes, sec.nodes(filepath, ids, log)...)
			sections++
			i = next
		}
		log.Info("heading pass complete", "heading_type", headType, "sections", sections)
	}

	log.Info("split complete", "nodes", len(nodes))
	return nodes, nil
}

type section struct {
	title       string
	level       int
	subHeadings []string
	body        []string
}

// readSection consumes the section opened at paragraphs[start] and returns
// the index of the next same-type heading, or len(paragraphs).
func readSection(paragraphs []document.Paragraph, start int, headType string) (section, int, error) {
	level, err := document.HeadingLevel(paragraphs[start].StyleName)
	if err != nil {
		return section{}, start, atParagraph(err, start)
	}
	sec := section{
		title: strings.TrimSpace(paragraphs[start].Text),
		level: level,
	}

	i := start + 1
	for ; i < len(paragraphs) && paragraphs[i].StyleName != headType; i++ {
		text := strings.TrimSpace(paragraphs[i].Text)
		if text == "" {
			continue
		}
		style, err := document.Classify(paragraphs[i].StyleName)
		if err != nil {
			return section{}, i, atParagraph(err, i)
		}
		if style.IsHeading() {
			sec.subHeadings = append(sec.subHeadings, style.MarkdownPrefix()+" "+text)
			continue
		}
		sec.body = append(sec.body, text)
	}
	return sec, i, nil
}

// plainText is the title line followed by the body lines.
func (s section) plainText() string {
	lines := make([]string, 0, len(s.body)+1)
	lines = append(lines, s.title)
	lines = append(lines, s.body...)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// markdown renders the section outline. Body lines are included only while
// the section has few sub-headings.
func (s section) markdown() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("#", s.level))
	b.WriteString(" ")
	b.WriteString(s.title)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(s.subHeadings, "\n"))
	if len(s.subHeadings) <= maxSubHeadingsWithBody {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(s.body, "\n"))
	}
	return b.String()
}

func (s section) nodes(filepath string, ids IDGenerator, log *slog.Logger) []document.Node {
	plain := s.plainText()
	md := s.markdown()

	content := plain
	if n := utf8.RuneCountInString(plain); n > LongSectionRunes {
		log.Warn("section too long, using outline as content", "title", s.title, "runes", n)
		content = md
	}

	out := make([]document.Node, 0, 2)
	if strings.TrimSpace(content) != "" {
		out = append(out, document.Node{
			ID:       ids.NewID(plain),
			Text:     content,
			Metadata: NewMetadata(filepath, document.TypeContent, s.title, content, md, nil),
		})
	}
	if s.title != "" {
		out = append(out, document.Node{
			ID:   ids.NewID(s.title),
			Text: s.title,
			Metadata: NewMetadata(filepath, document.TypeTitle, s.title, s.title, md, map[string]any{
				document.KeyContent:   plain,
				document.KeySubTitles: strings.Join(s.subHeadings, "\n"),
			}),
		})
	} else {
		log.Warn("section has an empty title, title node omitted", "runes", utf8.RuneCountInString(plain))
	}
	return out
}

func atParagraph(err error, index int) error {
	var pe *document.ParseError
	if errors.As(err, &pe) {
		pe.Paragraph = index
	}
	return err
}
