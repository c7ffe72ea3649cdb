package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsplit/internal/document"
	"github.com/dgallion1/docsplit/internal/store"
)

func writeDOCX(t *testing.T, path string, paras [][2]string) {
	t.Helper()
	w := docx.New().WithDefaultTheme()
	for _, p := range paras {
		para := w.AddParagraph()
		if p[0] != "" {
			para.Style(p[0])
		}
		para.AddText(p[1])
	}
	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

var guide = [][2]string{
	{"Heading2", "Overview"},
	{"", "First body paragraph."},
	{"Heading2", "Usage"},
	{"", "Second body paragraph."},
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DOCSPLIT_CONFIG", "")
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type splitOutput struct {
	DocID    string          `json:"doc_id"`
	Filename string          `json:"filename"`
	Mode     string          `json:"mode"`
	Nodes    []document.Node `json:"nodes"`
}

func TestSplit_SingleFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.docx")
	writeDOCX(t, path, guide)

	stdout, _, err := run(t, "split", path)
	require.NoError(t, err)

	var out []splitOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 1)
	assert.Equal(t, path, out[0].Filename)
	assert.Equal(t, "heading", out[0].Mode)
	require.Len(t, out[0].Nodes, 4)
	assert.Equal(t, "Overview", out[0].Nodes[1].Text)
	assert.Equal(t, path, out[0].Nodes[1].Metadata.String(document.KeyFilepath))
}

func TestSplit_DirectoryJSONL(t *testing.T) {
	dir := t.TempDir()
	writeDOCX(t, filepath.Join(dir, "a.docx"), guide)
	writeDOCX(t, filepath.Join(dir, "nested", "b.docx"), guide)
	writeDOCX(t, filepath.Join(dir, "~$a.docx"), guide)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	stdout, _, err := run(t, "split", "--out", "jsonl", "--mode", "size", "--size", "1000", "--id", "sequence", dir)
	require.NoError(t, err)

	var nodes []document.Node
	sc := bufio.NewScanner(strings.NewReader(stdout))
	for sc.Scan() {
		var n document.Node
		require.NoError(t, json.Unmarshal(sc.Bytes(), &n))
		nodes = append(nodes, n)
	}
	require.Len(t, nodes, 2)
	assert.Equal(t, "a.docx", nodes[0].Metadata.String(document.KeyFileName))
	assert.Equal(t, "b.docx", nodes[1].Metadata.String(document.KeyFileName))
	assert.True(t, strings.HasSuffix(nodes[0].ID, "-000001"))
}

func TestSplit_Include(t *testing.T) {
	dir := t.TempDir()
	writeDOCX(t, filepath.Join(dir, "a.docx"), guide)
	writeDOCX(t, filepath.Join(dir, "nested", "b.docx"), guide)

	stdout, _, err := run(t, "split", "--include", "nested/**", dir)
	require.NoError(t, err)

	var out []splitOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 1)
	assert.Equal(t, filepath.Join(dir, "nested", "b.docx"), out[0].Filename)
}

func TestSplit_Store(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.docx")
	writeDOCX(t, path, guide)
	dbPath := filepath.Join(dir, "nodes.db")

	stdout, _, err := run(t, "split", "--store", dbPath, path)
	require.NoError(t, err)
	var out []splitOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 1)

	st, err := store.NewBoltStore(dbPath)
	require.NoError(t, err)
	defer st.Close()
	nodes, err := st.GetNodes(out[0].DocID)
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
}

func TestSplit_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.docx")
	writeDOCX(t, path, guide)

	_, _, err := run(t, "split", filepath.Join(dir, "missing.docx"))
	assert.Error(t, err)

	_, _, err = run(t, "split", "--mode", "pages", path)
	assert.Error(t, err)

	_, _, err = run(t, "split", "--out", "xml", path)
	assert.Error(t, err)

	empty := t.TempDir()
	_, _, err = run(t, "split", empty)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.docx")
	writeDOCX(t, bad, [][2]string{{"Heading2", "Title"}, {"HeadingX", "broken"}})
	_, _, err = run(t, "split", bad)
	var pe *document.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestClassify(t *testing.T) {
	stdout, _, err := run(t, "classify", "Heading 2", "Normal")
	require.NoError(t, err)
	assert.Contains(t, stdout, "\"Heading 2\"\theading\tlevel 2\t##")
	assert.Contains(t, stdout, "\"Normal\"\tbody")

	stdout, _, err = run(t, "classify", "Heading X")
	assert.Error(t, err)
	assert.Contains(t, stdout, "error:")
}

func TestCollectFiles_Dedup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.docx")
	writeDOCX(t, path, guide)

	files, err := collectFiles([]string{path, dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}
