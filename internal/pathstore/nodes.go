package pathstore

import (
	"fmt"

	"github.com/dgallion1/docsplit/internal/document"
)

// DocumentPrefix is the key under which a document's nodes are pushed.
func DocumentPrefix(docID string) string {
	return fmt.Sprintf("docsplit/documents/%s", docID)
}

// NodeKey addresses a node by its position; node IDs are not unique.
func NodeKey(docID string, seq int) string {
	return fmt.Sprintf("%s/nodes/%06d", DocumentPrefix(docID), seq)
}

// NodeValue is the stored representation of a split node.
func NodeValue(n document.Node) map[string]any {
	return map[string]any{
		"id":       n.ID,
		"text":     n.Text,
		"metadata": map[string]any(n.Metadata),
	}
}

// TitleLinks pairs each title node with the content node of the same section.
// The heading splitter emits the content node immediately before its title
// node; a title without a preceding content node is left unlinked.
func TitleLinks(docID string, nodes []document.Node) []LinkRequest {
	var links []LinkRequest
	for i := 1; i < len(nodes); i++ {
		if nodes[i].Type() != document.TypeTitle || nodes[i-1].Type() != document.TypeContent {
			continue
		}
		if nodes[i-1].Metadata.String(document.KeyTitle) != nodes[i].Text {
			continue
		}
		links = append(links, LinkRequest{
			From:    NodeKey(docID, i),
			To:      NodeKey(docID, i-1),
			Weight:  1,
			Summary: "section title",
		})
	}
	return links
}
