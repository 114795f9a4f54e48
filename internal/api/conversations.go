package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/session"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type conversationItem struct {
	ConversationID string    `json:"conversationId"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	MessageCount   int64     `json:"messageCount"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type messageItem struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type transcriptResponse struct {
	ConversationID string        `json:"conversationId"`
	Title          string        `json:"title,omitempty"`
	Messages       []messageItem `json:"messages"`
	Total          int           `json:"total"`
}

type conversationsHandler struct {
	store  ConversationStore
	logger log.Logger
}

// list returns stored conversations newest first.
func (h *conversationsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, defaultListLimit, h.logger)
	if !ok {
		return
	}

	conversations, err := h.store.List(r.Context(), int32(limit), 0)
	if err != nil {
		h.logger.Error("listing conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	items := make([]conversationItem, 0, len(conversations))
	for _, c := range conversations {
		items = append(items, conversationItem{
			ConversationID: c.ID.String(),
			Title:          c.Title,
			Summary:        c.Summary,
			MessageCount:   c.MessageCount,
			UpdatedAt:      c.LastMessageAt,
		})
	}
	writeJSON(w, http.StatusOK, items, h.logger)
}

// messages returns a conversation's transcript in ascending order.
func (h *conversationsHandler) messages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_conversation", "invalid conversation id", h.logger)
		return
	}

	// 0 means the whole transcript.
	limit, ok := parseLimit(w, r, 0, h.logger)
	if !ok {
		return
	}

	ctx := r.Context()
	exists, err := h.store.Exists(ctx, conversationID)
	if err != nil {
		h.logger.Error("checking conversation", "error", err, "conversation_id", conversationID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "conversation_not_found", "conversation not found", h.logger)
		return
	}

	msgs, err := h.store.Messages(ctx, conversationID, int32(limit))
	if err != nil {
		h.logger.Error("loading messages", "error", err, "conversation_id", conversationID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	var title string
	meta, err := h.store.Meta(ctx, conversationID)
	switch {
	case err == nil:
		title = meta.Title
	case errors.Is(err, session.ErrMetaNotFound):
		// No title yet; the first completed exchange generates one.
	default:
		h.logger.Warn("loading conversation meta", "error", err, "conversation_id", conversationID)
	}

	items := make([]messageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, messageItem{
			ID:        m.ID.String(),
			Role:      string(m.Role),
			Content:   m.Content,
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, transcriptResponse{
		ConversationID: conversationID.String(),
		Title:          title,
		Messages:       items,
		Total:          len(items),
	}, h.logger)
}

// parseLimit reads the optional ?limit= parameter. Absent means the
// fallback; out-of-range values are a 400, written here. The second
// return is false once a response has been written.
func parseLimit(w http.ResponseWriter, r *http.Request, fallback int, logger log.Logger) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxListLimit {
		writeError(w, http.StatusBadRequest, "invalid_limit",
			"limit must be an integer between 1 and 100", logger)
		return 0, false
	}
	return limit, true
}
