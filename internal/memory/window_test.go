package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/session"
)

func TestWindow(t *testing.T) {
	store := &fakeStore{}
	for i := 1; i <= 6; i++ {
		store.messages = append(store.messages,
			msg(session.RoleUser, fmt.Sprintf("question %d", i)),
			msg(session.RoleAssistant, fmt.Sprintf("answer %d", i)),
		)
	}
	mgr := NewManager(store, &scriptedLLM{}, nil)

	window, err := mgr.Window(context.Background(), uuid.New(), DefaultWindowSize)
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	if len(window) != DefaultWindowSize {
		t.Fatalf("Window() returned %d messages, want %d", len(window), DefaultWindowSize)
	}
	if window[0].Content != "question 2" {
		t.Errorf("window starts with %q, want the oldest of the last %d", window[0].Content, DefaultWindowSize)
	}
	if window[len(window)-1].Content != "answer 6" {
		t.Errorf("window ends with %q, want the newest message", window[len(window)-1].Content)
	}
	for i, m := range window {
		want := llm.RoleUser
		if i%2 == 1 {
			want = llm.RoleAssistant
		}
		if m.Role != want {
			t.Errorf("window[%d].Role = %q, want %q", i, m.Role, want)
		}
	}
}

func TestWindowRoleMapping(t *testing.T) {
	store := &fakeStore{messages: []session.Message{
		msg(session.RoleSystem, "system note"),
		msg(session.Role("tool"), "tool output"),
		msg(session.RoleAssistant, "Ojekoo!"),
	}}
	mgr := NewManager(store, &scriptedLLM{}, nil)

	window, err := mgr.Window(context.Background(), uuid.New(), DefaultWindowSize)
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	want := []string{llm.RoleUser, llm.RoleUser, llm.RoleAssistant}
	if len(window) != len(want) {
		t.Fatalf("Window() returned %d messages, want %d", len(window), len(want))
	}
	for i, role := range want {
		if window[i].Role != role {
			t.Errorf("window[%d].Role = %q, want %q", i, window[i].Role, role)
		}
	}
}

func TestWindowEmptyConversation(t *testing.T) {
	mgr := NewManager(&fakeStore{}, &scriptedLLM{}, nil)

	window, err := mgr.Window(context.Background(), uuid.New(), DefaultWindowSize)
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	if len(window) != 0 {
		t.Errorf("Window() on empty conversation returned %d messages, want 0", len(window))
	}
}

func TestWindowStoreError(t *testing.T) {
	store := &fakeStore{recentErr: errors.New("connection reset")}
	mgr := NewManager(store, &scriptedLLM{}, nil)

	_, err := mgr.Window(context.Background(), uuid.New(), DefaultWindowSize)
	if err == nil {
		t.Fatal("Window() error = nil, want store error")
	}
	if !strings.Contains(err.Error(), "memory window") {
		t.Errorf("Window() error = %v, want context about the memory window", err)
	}
}
