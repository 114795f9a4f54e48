package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
)

// Input is the request payload for the ask flow.
type Input struct {
	Query string `json:"query"`

	// ConversationID continues an existing conversation. Empty starts a
	// new one.
	ConversationID string `json:"conversationId,omitempty"`

	// TopK overrides the retrieval depth. Zero keeps the default.
	TopK int `json:"topK,omitempty"`

	// SkipUserMessage tells the pipeline the user turn is already saved.
	SkipUserMessage bool `json:"skipUserMessage,omitempty"`
}

// Output is the response payload from the ask flow.
type Output struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

// StreamChunk is the streaming output type for the ask flow. Each chunk
// carries partial reply text for immediate display.
type StreamChunk struct {
	Text string `json:"text"`
}

// FlowName is the registered name of the ask flow in Genkit.
const FlowName = "sankofa/ask"

// Flow is the type alias for the ask flow, exported so the api package
// can serve it with genkit.Handler().
type Flow = core.Flow[Input, Output, StreamChunk]

// Package-level singleton: genkit.DefineStreamingFlow panics when the
// same flow name is registered twice.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the ask flow singleton, initializing it on first call.
// Subsequent calls return the existing flow and ignore the arguments.
func NewFlow(g *genkit.Genkit, svc *Service) *Flow {
	flowOnce.Do(func() {
		flow = svc.DefineFlow(g)
	})
	return flow
}

// ResetFlowForTesting resets the flow singleton so tests can initialize
// it with different configurations. Not safe for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

// DefineFlow registers the ask flow with Genkit. Use NewFlow instead of
// calling this directly; registering the name twice panics.
//
// The flow is a thin wrapper over AskStream that adds:
//  1. Observability (Genkit DevUI tracing)
//  2. Type safety (Input/Output schema)
//  3. HTTP endpoint exposure via genkit.Handler()
//  4. Streaming support for real-time output
func (s *Service) DefineFlow(g *genkit.Genkit) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			var conversationID uuid.UUID
			if input.ConversationID != "" {
				parsed, err := uuid.Parse(input.ConversationID)
				if err != nil {
					return Output{ConversationID: input.ConversationID}, fmt.Errorf("%w: %w", ErrInvalidConversation, err)
				}
				conversationID = parsed
			}

			// When streamCb is nil (flow invoked via Run rather than
			// Stream), a nil callback keeps the pipeline in batch mode.
			var callback StreamCallback
			if streamCb != nil {
				callback = func(ctx context.Context, chunk string) error {
					if chunk == "" {
						return nil
					}
					return streamCb(ctx, StreamChunk{Text: chunk})
				}
			}

			reply, err := s.AskStream(ctx, Request{
				Query:           input.Query,
				ConversationID:  conversationID,
				TopK:            input.TopK,
				SkipUserMessage: input.SkipUserMessage,
			}, callback)
			if err != nil {
				return Output{ConversationID: input.ConversationID}, err
			}

			return Output{
				Response:       reply.Text,
				ConversationID: reply.ConversationID.String(),
			}, nil
		},
	)
}
