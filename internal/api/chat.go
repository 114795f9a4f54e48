package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/chat"
	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/session"
)

// maxBodyBytes caps request bodies at 1 MiB.
const maxBodyBytes = 1 << 20

// headerConversationID carries the conversation id in chat responses,
// set before the first body byte in both batch and streaming modes.
const headerConversationID = "X-Conversation-Id"

// SSE event names for streaming chat.
const (
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

type askRequest struct {
	Query  string `json:"query"`
	TopK   int    `json:"topK,omitempty"`
	Stream bool   `json:"stream,omitempty"`
}

type askResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

type chunkPayload struct {
	Text string `json:"text"`
}

type donePayload struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

type chatHandler struct {
	chat      ChatService
	sessions  ConversationStore
	knowledge KnowledgeStore
	logger    log.Logger
}

// newChat starts a fresh conversation; the allocated id comes back in
// the X-Conversation-Id header and the response body.
func (h *chatHandler) newChat(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, uuid.Nil)
}

// continueChat appends to an existing conversation. Unknown ids are 404.
func (h *chatHandler) continueChat(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_conversation", "invalid conversation id", h.logger)
		return
	}
	h.ask(w, r, conversationID)
}

// ask validates the request, persists the user turn, then answers in
// batch or streaming mode. Persisting before answering pins down the
// conversation id early enough to put it in the response headers, which
// for SSE must be final before the first chunk goes out. The pipeline is
// told to skip the user message it would otherwise save itself.
func (h *chatHandler) ask(w http.ResponseWriter, r *http.Request, conversationID uuid.UUID) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body exceeds 1 MiB", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required", h.logger)
		return
	}
	if req.TopK < 0 || req.TopK > chat.MaxTopK {
		writeError(w, http.StatusBadRequest, "invalid_top_k",
			fmt.Sprintf("topK must be between 1 and %d", chat.MaxTopK), h.logger)
		return
	}

	if conversationID != uuid.Nil {
		exists, err := h.sessions.Exists(ctx, conversationID)
		if err != nil {
			h.logger.Error("checking conversation", "error", err, "conversation_id", conversationID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "conversation_not_found",
				"conversation not found, POST /api/v1/chat to start a new one", h.logger)
			return
		}
	}

	if err := h.knowledge.Ready(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge_unavailable",
			"knowledge store not ready, index documents first", h.logger)
		return
	}

	saved, err := h.sessions.Append(ctx, conversationID, session.RoleUser, req.Query, nil)
	if err != nil {
		h.logger.Error("saving user message", "error", err, "conversation_id", conversationID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}
	conversationID = saved.ConversationID

	w.Header().Set(headerConversationID, conversationID.String())

	chatReq := chat.Request{
		Query:           req.Query,
		ConversationID:  conversationID,
		TopK:            req.TopK,
		SkipUserMessage: true,
	}

	if req.Stream {
		h.stream(w, r, chatReq)
		return
	}

	reply, err := h.chat.AskStream(ctx, chatReq, nil)
	if err != nil {
		status, code := askErrorStatus(err)
		h.logger.Error("ask failed", "error", err, "conversation_id", conversationID)
		writeError(w, status, code, err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{
		Response:       reply.Text,
		ConversationID: reply.ConversationID.String(),
	}, h.logger)
}

// stream answers over SSE: one "chunk" event per generated piece, then
// "done" with the full text, or "error" if the pipeline fails. The 200
// status is committed with the first event, so failures after that point
// can only be reported in-band.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request, chatReq chat.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	h.logger.Debug("sse stream started", "conversation_id", chatReq.ConversationID)

	reply, err := h.chat.AskStream(ctx, chatReq, func(_ context.Context, chunk string) error {
		return writeEvent(w, flusher, eventChunk, chunkPayload{Text: chunk})
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected", "conversation_id", chatReq.ConversationID)
			return
		}
		_, code := askErrorStatus(err)
		_ = writeEvent(w, flusher, eventError, errorPayload{Error: err.Error(), Code: code})
		return
	}

	_ = writeEvent(w, flusher, eventDone, donePayload{
		Response:       reply.Text,
		ConversationID: reply.ConversationID.String(),
	})
	h.logger.Debug("sse stream completed", "conversation_id", reply.ConversationID)
}

// askErrorStatus maps pipeline failures to an HTTP status and error
// code. SSE callers use only the code.
func askErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrEmptyQuery),
		errors.Is(err, chat.ErrInvalidTopK),
		errors.Is(err, chat.ErrMissingConversation),
		errors.Is(err, chat.ErrInvalidConversation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, session.ErrConversationNotFound):
		return http.StatusNotFound, "conversation_not_found"
	case errors.Is(err, knowledge.ErrUnavailable):
		return http.StatusServiceUnavailable, "knowledge_unavailable"
	case errors.Is(err, llm.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "model_unavailable"
	default:
		return http.StatusInternalServerError, "generation_failed"
	}
}

// writeEvent writes one SSE event ("event: <name>\ndata: <json>\n\n")
// and flushes it to the client.
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	flusher.Flush()
	return nil
}
