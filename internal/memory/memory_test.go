package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/session"
)

// fakeStore mirrors the session store's read semantics: Messages returns
// the first limit messages ascending, Recent the last n oldest first.
type fakeStore struct {
	mu sync.Mutex

	messages    []session.Message
	messagesErr error
	recentErr   error

	meta    session.Meta
	metaErr error

	setSummaryErr error
	setTitleErr   error

	messagesLimit int32
	summaries     []string
	titles        []string
}

func (f *fakeStore) Messages(_ context.Context, _ uuid.UUID, limit int32) ([]session.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messagesLimit = limit
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	msgs := f.messages
	if limit > 0 && int(limit) < len(msgs) {
		msgs = msgs[:limit]
	}
	return append([]session.Message(nil), msgs...), nil
}

func (f *fakeStore) Recent(_ context.Context, _ uuid.UUID, n int32) ([]session.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	if n <= 0 {
		return nil, nil
	}
	msgs := f.messages
	if int(n) < len(msgs) {
		msgs = msgs[len(msgs)-int(n):]
	}
	return append([]session.Message(nil), msgs...), nil
}

func (f *fakeStore) Meta(_ context.Context, _ uuid.UUID) (session.Meta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return session.Meta{}, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeStore) SetSummary(_ context.Context, _ uuid.UUID, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setSummaryErr != nil {
		return f.setSummaryErr
	}
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeStore) SetTitle(_ context.Context, _ uuid.UUID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setTitleErr != nil {
		return f.setTitleErr
	}
	f.titles = append(f.titles, title)
	return nil
}

// scriptedLLM returns canned replies in order, repeating the last one,
// and records every request it saw.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []llm.Request
}

func (s *scriptedLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

func (s *scriptedLLM) GenerateStream(ctx context.Context, req llm.Request, _ llm.StreamCallback) (string, error) {
	return s.Generate(ctx, req)
}

func msg(role session.Role, content string) session.Message {
	return session.Message{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
