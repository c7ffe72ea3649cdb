package splitter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docsplit/internal/document"
)

// Split modes.
const (
	ModeHeading = "heading"
	ModeSize    = "size"
)

// Splitter turns an ordered paragraph list into ordered nodes.
type Splitter interface {
	Split(filepath string, paragraphs []document.Paragraph) ([]document.Node, error)
	Name() string
}

// Options configures New.
type Options struct {
	HeadingTypes []string
	Size         int
	IDs          IDGenerator
	Log          *slog.Logger
}

// New returns the splitter registered for mode.
func New(mode string, opts Options) (Splitter, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeHeading:
		return NewHeadingSplitter(opts.HeadingTypes, opts.IDs, opts.Log), nil
	case ModeSize:
		return NewSizeSplitter(opts.Size, opts.IDs, opts.Log), nil
	default:
		return nil, fmt.Errorf("unknown split mode: %q", mode)
	}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func idsOrDefault(g IDGenerator) IDGenerator {
	if g == nil {
		return ContentHash{}
	}
	return g
}
