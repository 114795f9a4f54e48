package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kofiasare/sankofa/internal/log"
)

// GenkitClient generates through a model registered on a Genkit
// instance. The Gemini and Ollama providers both arrive here; plugin
// registration happens at setup time, this client only resolves the
// model by name.
type GenkitClient struct {
	g         *genkit.Genkit
	modelName string
	logger    log.Logger
}

// NewGenkitClient creates a client for the named model. A nil logger
// discards output.
func NewGenkitClient(g *genkit.Genkit, modelName string, logger log.Logger) *GenkitClient {
	if logger == nil {
		logger = log.NewNop()
	}
	return &GenkitClient{
		g:         g,
		modelName: modelName,
		logger:    logger,
	}
}

// Generate implements Client.
func (c *GenkitClient) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := genkit.Generate(ctx, c.g, c.buildOptions(req)...)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	return resp.Text(), nil
}

// GenerateStream implements Client.
func (c *GenkitClient) GenerateStream(ctx context.Context, req Request, callback StreamCallback) (string, error) {
	opts := c.buildOptions(req)
	opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
		if callback == nil {
			return nil
		}
		return callback(ctx, chunk.Text())
	}))

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating streaming response: %w", err)
	}
	return resp.Text(), nil
}

func (c *GenkitClient) buildOptions(req Request) []ai.GenerateOption {
	messages := make([]*ai.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, ai.NewModelTextMessage(m.Content))
		default:
			messages = append(messages, ai.NewUserTextMessage(m.Content))
		}
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(req.Prompt)))

	opts := []ai.GenerateOption{ai.WithMessages(messages...)}
	if c.modelName != "" {
		opts = append(opts, ai.WithModelName(c.modelName))
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if cfg := generationConfig(req); len(cfg) > 0 {
		opts = append(opts, ai.WithConfig(cfg))
	}
	return opts
}

// generationConfig builds the provider-neutral config map. Plugins map
// the keys onto their own config types.
func generationConfig(req Request) map[string]any {
	cfg := make(map[string]any, 2)
	if req.Temperature > 0 {
		cfg["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		cfg["maxOutputTokens"] = req.MaxTokens
	}
	return cfg
}
