package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/document"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/dgallion1/docsplit/internal/splitter"
	"github.com/dgallion1/docsplit/internal/store"
)

// SplitOptions selects the splitter for one document. Zero values fall back
// to the configured defaults.
type SplitOptions struct {
	Mode         string   `json:"mode"`
	HeadingTypes []string `json:"heading_types,omitempty"`
	Size         int      `json:"size,omitempty"`
	IDStrategy   string   `json:"id_strategy"`
}

// WithDefaults fills unset fields from cfg.
func (o SplitOptions) WithDefaults(cfg config.Config) SplitOptions {
	if strings.TrimSpace(o.Mode) == "" {
		o.Mode = cfg.DefaultMode
	}
	if len(o.HeadingTypes) == 0 {
		o.HeadingTypes = cfg.DefaultHeadingTypes
	}
	if o.Size <= 0 {
		o.Size = cfg.DefaultSize
	}
	if strings.TrimSpace(o.IDStrategy) == "" {
		o.IDStrategy = cfg.DefaultIDStrategy
	}
	return o
}

// Validate rejects options no splitter can run with.
func (o SplitOptions) Validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Mode)) {
	case splitter.ModeHeading:
		if len(o.HeadingTypes) == 0 {
			return errors.New("heading mode needs at least one heading type")
		}
	case splitter.ModeSize:
		if o.Size <= 0 {
			return fmt.Errorf("size must be positive, got %d", o.Size)
		}
	default:
		return fmt.Errorf("unknown split mode: %q", o.Mode)
	}
	if _, err := splitter.IDStrategy(o.IDStrategy, ""); err != nil {
		return err
	}
	return nil
}

// ErrPersist marks a split that succeeded but could not be saved.
var ErrPersist = errors.New("persist failed")

// Result is the outcome of loading and splitting one document.
type Result struct {
	DocID       string          `json:"doc_id"`
	Filename    string          `json:"filename"`
	Mode        string          `json:"mode"`
	ContentHash string          `json:"content_hash"`
	Paragraphs  int             `json:"paragraphs"`
	Nodes       []document.Node `json:"nodes"`
	Duration    time.Duration   `json:"-"`
}

// SplitDocument loads a document from memory and splits it. The filename
// selects the loader and becomes the nodes' filepath metadata.
func SplitDocument(docID, filename string, data []byte, opts SplitOptions, log *slog.Logger) (*Result, error) {
	start := time.Now()

	loader, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	paragraphs, err := loader.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}

	ids, err := splitter.IDStrategy(opts.IDStrategy, sequencePrefix(docID))
	if err != nil {
		return nil, err
	}
	sp, err := splitter.New(opts.Mode, splitter.Options{
		HeadingTypes: opts.HeadingTypes,
		Size:         opts.Size,
		IDs:          ids,
		Log:          log,
	})
	if err != nil {
		return nil, err
	}

	nodes, err := sp.Split(filename, paragraphs)
	if err != nil {
		return nil, err
	}

	return &Result{
		DocID:       docID,
		Filename:    filename,
		Mode:        sp.Name(),
		ContentHash: ContentHashHex(data),
		Paragraphs:  len(paragraphs),
		Nodes:       nodes,
		Duration:    time.Since(start),
	}, nil
}

// sequencePrefix keeps sequence IDs from different documents apart.
func sequencePrefix(docID string) string {
	if len(docID) > 8 {
		return docID[:8]
	}
	return docID
}

// Document describes the result for persistence.
func (r *Result) Document(createdAt time.Time) store.Document {
	return store.Document{
		ID:          r.DocID,
		Filename:    r.Filename,
		Mode:        r.Mode,
		ContentHash: r.ContentHash,
		NodeCount:   len(r.Nodes),
		CreatedAt:   createdAt,
	}
}
