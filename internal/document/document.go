package document

// Paragraph is one body paragraph as yielded by a loader, in document order.
type Paragraph struct {
	Text      string `json:"text"`
	StyleName string `json:"style_name"`
}

// NodeType distinguishes section bodies from section titles.
type NodeType string

const (
	TypeContent NodeType = "content"
	TypeTitle   NodeType = "title"
)

// Metadata keys attached to every node.
const (
	KeyTitle     = "title"
	KeyLength    = "length"
	KeyContent   = "content"
	KeyFilepath  = "filepath"
	KeyPath      = "path"
	KeyFileName  = "file_name"
	KeyType      = "type"
	KeyXML       = "xml"
	KeySource    = "source"
	KeySubTitles = "sub_titles" // title nodes only
)

// Metadata is the descriptive mapping carried by a Node for downstream indexing.
type Metadata map[string]any

// String returns the string value stored under key, or "".
func (m Metadata) String(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Int returns the integer value stored under key, or 0.
func (m Metadata) Int(key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Node is an emitted retrieval chunk. ID is a best-effort hint and is not
// guaranteed to be unique.
type Node struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Type reports the node type recorded in its metadata.
func (n Node) Type() NodeType {
	return NodeType(n.Metadata.String(KeyType))
}
