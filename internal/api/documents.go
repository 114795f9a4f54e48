package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/log"
)

type documentRequest struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

type documentResponse struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`
}

type documentsHandler struct {
	indexer   Indexer
	knowledge KnowledgeStore
	logger    log.Logger
}

// create indexes submitted text into the knowledge store and reports how
// many chunks it became.
func (h *documentsHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body exceeds 1 MiB", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "missing_text", "text is required", h.logger)
		return
	}

	if err := h.knowledge.Ready(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge_unavailable",
			"knowledge store not ready", h.logger)
		return
	}

	chunks, err := h.indexer.AddText(ctx, req.Text, req.Title)
	if err != nil {
		if errors.Is(err, knowledge.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "knowledge_unavailable",
				"knowledge store not ready", h.logger)
			return
		}
		h.logger.Error("indexing document", "error", err, "title", req.Title)
		writeError(w, http.StatusInternalServerError, "index_failed", "indexing failed", h.logger)
		return
	}

	title := req.Title
	if title == "" {
		title = "untitled"
	}
	h.logger.Info("document indexed", "title", title, "chunks", chunks)
	writeJSON(w, http.StatusCreated, documentResponse{
		Status: "indexed",
		Title:  title,
		Chunks: chunks,
	}, h.logger)
}
