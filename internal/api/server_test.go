package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/document"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/dgallion1/docsplit/internal/store"
)

const testKey = "test-key"

func buildDOCX(t *testing.T, paras [][2]string) []byte {
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
	return buf.Bytes()
}

func guideDOCX(t *testing.T) []byte {
	return buildDOCX(t, [][2]string{
		{"Heading2", "Overview"},
		{"", "First body paragraph."},
		{"Heading2", "Usage"},
		{"", "Second body paragraph."},
	})
}

type testEnv struct {
	server *Server
	store  *store.BoltStore
}

func newTestEnv(t *testing.T, withStore bool) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.APIKey = testKey
	cfg.WorkerCount = 1

	var st *store.BoltStore
	if withStore {
		var err error
		st, err = store.NewBoltStore(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, st, nil, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return &testEnv{server: NewServer(orch, log, cfg), store: st}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t, false)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, false)

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/split", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/split", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, env.do(t, req).Code)

	assert.Equal(t, http.StatusOK, env.do(t, httptest.NewRequest(http.MethodGet, "/api/stats/split", nil)).Code)
}

func TestSplit_Heading(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, uploadRequest(t, "/api/split", "guide.docx", guideDOCX(t), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.NotEmpty(t, out["doc_id"])
	assert.Equal(t, "heading", out["mode"])
	assert.Equal(t, false, out["persisted"])
	nodes := out["nodes"].([]any)
	require.Len(t, nodes, 4)
	title := nodes[1].(map[string]any)
	assert.Equal(t, "Overview", title["text"])
	md := title["metadata"].(map[string]any)
	assert.Equal(t, "title", md["type"])
	assert.Equal(t, "guide.docx", md["file_name"])
}

func TestSplit_SizeMode(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, uploadRequest(t, "/api/split", "guide.docx", guideDOCX(t), map[string]string{
		"mode":        "size",
		"size":        "30",
		"id_strategy": "sequence",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "size", out["mode"])
	nodes := out["nodes"].([]any)
	require.Greater(t, len(nodes), 1)
	assert.Contains(t, nodes[0].(map[string]any)["id"], "-000001")
}

func TestSplit_HeadingTypesOverride(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, uploadRequest(t, "/api/split", "guide.docx", guideDOCX(t), map[string]string{
		"heading_types": "Heading 1",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["nodes"])
}

func TestSplit_BadRequests(t *testing.T) {
	env := newTestEnv(t, false)

	cases := []struct {
		name     string
		filename string
		data     []byte
		fields   map[string]string
	}{
		{"unsupported extension", "notes.pdf", []byte("%PDF"), nil},
		{"bad size", "guide.docx", guideDOCX(t), map[string]string{"size": "-3"}},
		{"unknown mode", "guide.docx", guideDOCX(t), map[string]string{"mode": "pages"}},
		{"unknown id strategy", "guide.docx", guideDOCX(t), map[string]string{"id_strategy": "random"}},
		{"corrupt docx", "guide.docx", []byte("not a zip"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, uploadRequest(t, "/api/split", tc.filename, tc.data, tc.fields))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestSplit_MalformedHeadingIs422(t *testing.T) {
	env := newTestEnv(t, false)
	data := buildDOCX(t, [][2]string{
		{"Heading2", "Overview"},
		{"HeadingX", "broken"},
	})
	rec := env.do(t, uploadRequest(t, "/api/split", "guide.docx", data, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "HeadingX")
}

func TestDocuments_Lifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, uploadRequest(t, "/api/split", "guide.docx", guideDOCX(t), map[string]string{"persist": "true"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, true, out["persisted"])
	docID := out["doc_id"].(string)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	docs := decode(t, rec)["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, docID, docs[0].(map[string]any)["doc_id"])

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/nodes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	nodes := decode(t, rec)["nodes"].([]any)
	require.Len(t, nodes, 4)
	title := nodes[1].(map[string]any)
	assert.Equal(t, "title", title["metadata"].(map[string]any)["type"])
	assert.Equal(t, 1.0, title["seq"])

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/nodes/1/preview", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h2>Overview</h2>")
	assert.Contains(t, rec.Body.String(), "<title>Overview</title>")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/nodes/4/preview", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, bad := range []string{"missing", "-1"} {
		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/nodes/"+bad+"/preview", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/documents/"+docID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, decode(t, rec)["nodes_deleted"])

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/nodes", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/documents/"+docID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocuments_StoreDisabled(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngest_CompletesAndPersists(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, uploadRequest(t, "/api/ingest", "guide.docx", guideDOCX(t), nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	out := decode(t, rec)
	jobID := out["job_id"].(string)
	docID := out["doc_id"].(string)
	assert.Equal(t, "/api/ingest/"+jobID+"/status", out["poll_url"])

	var status map[string]any
	require.Eventually(t, func() bool {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/ingest/"+jobID+"/status", nil))
		if rec.Code != http.StatusOK {
			return false
		}
		status = decode(t, rec)
		return status["status"] == string(pipeline.StatusCompleted)
	}, 5*time.Second, 10*time.Millisecond)

	progress := status["progress"].(map[string]any)
	assert.Equal(t, 4.0, progress["nodes"])
	assert.Equal(t, 4.0, progress["nodes_stored"])

	doc, err := env.store.GetDocument(docID)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.NodeCount)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/stats/split", nil))
	stats := decode(t, rec)["stats"].(map[string]any)
	assert.Equal(t, 1.0, stats["count"])
}

func TestIngestStatus_UnknownJob(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/ingest/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "guide.docx", sanitizeFilename("../../etc/guide.docx"))
	assert.Equal(t, "unnamed", sanitizeFilename(""))
	assert.Equal(t, "a_b.docx", sanitizeFilename("a..b.docx"))
}

func TestDocuments_PreviewWithCollidingIDs(t *testing.T) {
	env := newTestEnv(t, true)

	// A heading with no body hashes to the same ID for both of its nodes.
	data := buildDOCX(t, [][2]string{{"Heading2", "Run"}})
	rec := env.do(t, uploadRequest(t, "/api/split", "run.docx", data, map[string]string{"persist": "true"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	docID := decode(t, rec)["doc_id"].(string)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/nodes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	nodes := decode(t, rec)["nodes"].([]any)
	require.Len(t, nodes, 2)
	content, title := nodes[0].(map[string]any), nodes[1].(map[string]any)
	require.Equal(t, content["id"], title["id"])
	assert.Equal(t, "title", title["metadata"].(map[string]any)["type"])

	for _, seq := range []string{"0", "1"} {
		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/nodes/"+seq+"/preview", nil))
		require.Equal(t, http.StatusOK, rec.Code, seq)
		assert.Contains(t, rec.Body.String(), "<h2>Run</h2>")
	}
	got, err := env.store.GetNode(docID, 1)
	require.NoError(t, err)
	assert.Equal(t, document.TypeTitle, got.Type())
}
