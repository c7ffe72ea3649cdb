package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/docsplit/internal/document"
	"github.com/dgallion1/docsplit/internal/pathstore"
	"github.com/dgallion1/docsplit/internal/render"
	"github.com/dgallion1/docsplit/internal/store"
	"github.com/go-chi/chi/v5"
)

// documentStore returns the node store or answers 503 when persistence is off.
func (s *Server) documentStore(w http.ResponseWriter) *store.BoltStore {
	st := s.orchestrator.Store()
	if st == nil {
		jsonError(w, "document store disabled", http.StatusServiceUnavailable)
	}
	return st
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

// handleListDocuments lists stored documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	st := s.documentStore(w)
	if st == nil {
		return
	}
	docs, err := st.ListDocuments()
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

// handleDocumentNodes returns a document's nodes in split order.
func (s *Server) handleDocumentNodes(w http.ResponseWriter, r *http.Request) {
	st := s.documentStore(w)
	if st == nil {
		return
	}
	docID := chi.URLParam(r, "docID")
	doc, err := st.GetDocument(docID)
	if err != nil {
		storeError(w, err)
		return
	}
	nodes, err := st.GetNodes(docID)
	if err != nil {
		storeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"document": doc,
		"nodes":    nodes,
	})
}

// handleNodePreview renders a node's markdown block as an HTML page. Nodes
// are addressed by their position in the document since IDs may repeat.
func (s *Server) handleNodePreview(w http.ResponseWriter, r *http.Request) {
	st := s.documentStore(w)
	if st == nil {
		return
	}
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil || seq < 0 {
		jsonError(w, "invalid node sequence", http.StatusBadRequest)
		return
	}
	node, err := st.GetNode(chi.URLParam(r, "docID"), seq)
	if err != nil {
		storeError(w, err)
		return
	}

	src := node.Metadata.String(document.KeyXML)
	if src == "" {
		src = node.Text
	}
	body, err := render.MarkdownToHTML(src)
	if err != nil {
		jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(render.Page(node.Metadata.String(document.KeyTitle), body)))
}

// handleDeleteDocument deletes a document locally and, when configured, its
// pushed copy in pathstore.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	st := s.documentStore(w)
	if st == nil {
		return
	}
	docID := chi.URLParam(r, "docID")
	removed, err := st.DeleteDocument(docID)
	if err != nil {
		storeError(w, err)
		return
	}

	resp := map[string]any{
		"doc_id":        docID,
		"nodes_deleted": removed,
	}
	if ps := s.orchestrator.PathstoreClient(); ps != nil {
		if err := ps.DeleteNode(r.Context(), pathstore.DocumentPrefix(docID), true); err != nil {
			s.log.Warn("pathstore delete failed", "doc_id", docID, "error", err)
			resp["pathstore_error"] = err.Error()
		} else {
			resp["pathstore_deleted"] = true
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
