package document

import (
	"fmt"
	"strings"
)

// HeadingPrefix marks style names that carry a heading level in their final character.
const HeadingPrefix = "Heading"

// Kind is the structural role of a paragraph.
type Kind int

const (
	KindBody Kind = iota
	KindHeading
)

func (k Kind) String() string {
	if k == KindHeading {
		return "heading"
	}
	return "body"
}

// Style is the classified form of a paragraph style name.
// Level is only meaningful for KindHeading.
type Style struct {
	Kind  Kind
	Level int
}

// IsHeading reports whether the style is a heading.
func (s Style) IsHeading() bool { return s.Kind == KindHeading }

// MarkdownPrefix returns "#" repeated Level times, or "" for body styles.
func (s Style) MarkdownPrefix() string {
	if s.Kind != KindHeading {
		return ""
	}
	return strings.Repeat("#", s.Level)
}

// ParseError reports a heading style whose level cannot be derived.
type ParseError struct {
	StyleName string
	Paragraph int // index into the paragraph slice, -1 if unknown
}

func (e *ParseError) Error() string {
	if e.Paragraph >= 0 {
		return fmt.Sprintf("paragraph %d: heading style %q has no trailing level digit", e.Paragraph, e.StyleName)
	}
	return fmt.Sprintf("heading style %q has no trailing level digit", e.StyleName)
}

// Classify derives the structural style of a paragraph from its style name.
// Names starting with HeadingPrefix are headings and must end in a digit.
func Classify(styleName string) (Style, error) {
	if !strings.HasPrefix(styleName, HeadingPrefix) {
		return Style{Kind: KindBody}, nil
	}
	level, err := HeadingLevel(styleName)
	if err != nil {
		return Style{}, err
	}
	return Style{Kind: KindHeading, Level: level}, nil
}

// HeadingLevel parses the level encoded in the final character of a style
// name ("Heading 2" -> 2).
func HeadingLevel(styleName string) (int, error) {
	if styleName == "" {
		return 0, &ParseError{StyleName: styleName, Paragraph: -1}
	}
	last := styleName[len(styleName)-1]
	if last < '0' || last > '9' {
		return 0, &ParseError{StyleName: styleName, Paragraph: -1}
	}
	return int(last - '0'), nil
}

// IsHeadingStyle reports whether a style name is heading-prefixed, without
// deriving its level.
func IsHeadingStyle(styleName string) bool {
	return strings.HasPrefix(styleName, HeadingPrefix)
}
