package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/session"
)

func TestConversationsList(t *testing.T) {
	f := newServerFixture(t)
	newer := session.Conversation{
		ID:            uuid.New(),
		Title:         "Ga Morning Greetings",
		Summary:       "Learner practiced Ojekoo.",
		MessageCount:  4,
		LastMessageAt: time.Now(),
	}
	older := session.Conversation{
		ID:            uuid.New(),
		Title:         "Numbers in Ga",
		MessageCount:  2,
		LastMessageAt: time.Now().Add(-time.Hour),
	}
	f.sessions.conversations = []session.Conversation{newer, older}

	rec := f.do(t, http.MethodGet, "/api/v1/conversations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var items []conversationItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d conversations, want 2", len(items))
	}
	if items[0].ConversationID != newer.ID.String() || items[0].Title != "Ga Morning Greetings" {
		t.Errorf("first item = %+v, want the newest conversation", items[0])
	}
	if items[0].MessageCount != 4 || items[0].Summary != "Learner practiced Ojekoo." {
		t.Errorf("item fields = %+v, want count and summary carried through", items[0])
	}
}

func TestConversationsListEmpty(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/conversations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// An empty store is an empty array, not null.
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want an empty JSON array", body)
	}
}

func TestConversationsListInvalidLimit(t *testing.T) {
	for _, limit := range []string{"0", "-5", "101", "abc"} {
		f := newServerFixture(t)
		rec := f.do(t, http.MethodGet, "/api/v1/conversations?limit="+limit, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestConversationMessages(t *testing.T) {
	f := newServerFixture(t)
	conversationID := uuid.New()
	f.sessions.messagesByID = map[uuid.UUID][]session.Message{
		conversationID: {
			{ID: uuid.New(), ConversationID: conversationID, Role: session.RoleUser, Content: "Ojekoo", CreatedAt: time.Now()},
			{ID: uuid.New(), ConversationID: conversationID, Role: session.RoleAssistant, Content: "Ojekoo! Good morning.", CreatedAt: time.Now()},
		},
	}
	f.sessions.meta = session.Meta{ConversationID: conversationID, Title: "Ga Morning Greetings"}
	f.sessions.metaErr = nil

	rec := f.do(t, http.MethodGet, "/api/v1/conversations/"+conversationID.String()+"/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp transcriptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding transcript: %v", err)
	}
	if resp.ConversationID != conversationID.String() {
		t.Errorf("conversationId = %q, want the path id", resp.ConversationID)
	}
	if resp.Title != "Ga Morning Greetings" {
		t.Errorf("title = %q, want the stored title", resp.Title)
	}
	if resp.Total != 2 || len(resp.Messages) != 2 {
		t.Fatalf("total = %d with %d messages, want 2", resp.Total, len(resp.Messages))
	}
	if resp.Messages[0].Role != "user" || resp.Messages[1].Role != "assistant" {
		t.Errorf("roles = %q, %q; want user then assistant", resp.Messages[0].Role, resp.Messages[1].Role)
	}
}

func TestConversationMessagesNoTitleYet(t *testing.T) {
	f := newServerFixture(t)
	conversationID := uuid.New()
	f.sessions.messagesByID = map[uuid.UUID][]session.Message{
		conversationID: {
			{ID: uuid.New(), ConversationID: conversationID, Role: session.RoleUser, Content: "Ojekoo", CreatedAt: time.Now()},
		},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/conversations/"+conversationID.String()+"/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite missing meta", rec.Code)
	}
	var resp transcriptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding transcript: %v", err)
	}
	if resp.Title != "" {
		t.Errorf("title = %q, want empty before the first exchange completes", resp.Title)
	}
}

func TestConversationMessagesUnknown(t *testing.T) {
	f := newServerFixture(t)
	f.sessions.exists = false

	rec := f.do(t, http.MethodGet, "/api/v1/conversations/"+uuid.NewString()+"/messages", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if payload := decodeErrorPayload(t, rec); payload.Code != "conversation_not_found" {
		t.Errorf("code = %q, want conversation_not_found", payload.Code)
	}
}

func TestConversationMessagesInvalidID(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/conversations/not-a-uuid/messages", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
