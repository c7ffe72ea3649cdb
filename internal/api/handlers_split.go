package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/document"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

// upload is a validated multipart request carrying one document.
type upload struct {
	filename string
	data     []byte
	opts     pipeline.SplitOptions
}

// readUpload parses the multipart form shared by split and ingest. It writes
// the error response itself and returns false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return upload{}, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return upload{}, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return upload{}, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return upload{}, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return upload{}, false
	}

	opts, err := splitOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return upload{}, false
	}
	opts = opts.WithDefaults(s.cfg)
	if err := opts.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return upload{}, false
	}
	return upload{filename: filename, data: data, opts: opts}, true
}

// splitOptions reads the optional splitter overrides from the form.
func splitOptions(r *http.Request) (pipeline.SplitOptions, error) {
	opts := pipeline.SplitOptions{
		Mode:         strings.TrimSpace(r.FormValue("mode")),
		HeadingTypes: config.SplitList(r.FormValue("heading_types")),
		IDStrategy:   strings.TrimSpace(r.FormValue("id_strategy")),
	}
	if v := strings.TrimSpace(r.FormValue("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("size must be a positive integer, got %q", v)
		}
		opts.Size = n
	}
	return opts, nil
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	persist := r.FormValue("persist") == "true"

	res, err := s.orchestrator.Split(up.filename, up.data, up.opts, persist)
	if err != nil {
		s.log.Warn("split failed", "filename", up.filename, "error", err)
		jsonError(w, err.Error(), splitErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":    res.DocID,
		"filename":  res.Filename,
		"mode":      res.Mode,
		"persisted": persist && s.orchestrator.Store() != nil,
		"nodes":     res.Nodes,
	})
}

// splitErrorStatus maps a split failure to an HTTP status.
func splitErrorStatus(err error) int {
	var pe *document.ParseError
	switch {
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrPersist):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
