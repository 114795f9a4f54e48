package llm

import "context"

// Message roles understood by every client. Anything else is treated as
// RoleUser.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior conversation turn passed as generation history.
type Message struct {
	Role    string
	Content string
}

// Request carries everything a generation needs. History runs oldest
// first; Prompt is the new user turn and is always sent last. A zero
// Temperature or MaxTokens leaves the provider default in place.
type Request struct {
	System      string
	History     []Message
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// StreamCallback receives response text as it is produced. Returning an
// error aborts the stream.
type StreamCallback func(ctx context.Context, chunk string) error

// Client generates model responses. Implementations wrap one provider;
// RetryClient decorates any Client with backoff and rate limiting.
type Client interface {
	// Generate returns the complete response text.
	Generate(ctx context.Context, req Request) (string, error)

	// GenerateStream invokes callback for each chunk of response text
	// and returns the full accumulated text once the stream is
	// exhausted. The returned text is authoritative; callers must not
	// treat a partial chunk sequence as a finished response.
	GenerateStream(ctx context.Context, req Request, callback StreamCallback) (string, error)
}
