package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

var md = goldmark.New()

// MarkdownToHTML renders a section outline (a node's xml field) as HTML for
// previewing. Raw HTML in the source is dropped by the default renderer.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Page wraps rendered HTML in a minimal standalone document.
func Page(title, bodyHTML string) string {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(html.EscapeString(title))
	buf.WriteString("</title></head><body>\n")
	buf.WriteString(bodyHTML)
	buf.WriteString("</body></html>\n")
	return buf.String()
}
