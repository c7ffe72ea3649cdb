package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/docsplit/internal/document"
	"github.com/fumiama/go-docx"
)

// DOCX loads the body paragraphs of a .docx file together with their style names.
type DOCX struct{}

func (p *DOCX) Load(r io.Reader) ([]document.Paragraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}

	// go-docx needs a ReaderAt+size.
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	names, err := readStyleNames(data)
	if err != nil {
		return nil, fmt.Errorf("read styles: %w", err)
	}

	paras := make([]document.Paragraph, 0, len(doc.Document.Body.Items))
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		paras = append(paras, document.Paragraph{
			Text:      docxParagraphText(para),
			StyleName: names.resolve(docxStyleID(para)),
		})
	}
	return paras, nil
}

func docxStyleID(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// docxParagraphText concatenates run text. Tabs and breaks are kept so the
// splitters decide what counts as blank.
func docxParagraphText(para *docx.Paragraph) string {
	var buf bytes.Buffer
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteByte('\t')
			case *docx.BarterRabbet:
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String()
}
