package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kofiasare/sankofa/internal/log"
)

const (
	// DefaultOpenRouterBaseURL is the OpenRouter OpenAI-compatible
	// endpoint.
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultOpenRouterModel is the model slug requested when none is
	// configured.
	DefaultOpenRouterModel = "qwen/qwen3-30b-a3b-instruct-2507"
)

// OpenRouterConfig configures the OpenRouter client.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenRouterClient talks to OpenRouter through its OpenAI-compatible
// chat completions API.
type OpenRouterClient struct {
	client *openai.Client
	model  string
	logger log.Logger
}

// NewOpenRouter creates an OpenRouter-backed client.
func NewOpenRouter(cfg OpenRouterConfig, logger log.Logger) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenRouterModel
	}
	if logger == nil {
		logger = log.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &OpenRouterClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Generate implements Client.
func (c *OpenRouterClient) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("openrouter chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream implements Client. The accumulated text is returned
// only after the provider closes the stream; a transport error mid-way
// discards the partial text.
func (c *OpenRouterClient) GenerateStream(ctx context.Context, req Request, callback StreamCallback) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("openrouter opening stream: %w", err)
	}
	defer func() {
		_ = stream.Close()
	}()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("openrouter reading stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if callback != nil {
			if err := callback(ctx, chunk); err != nil {
				return "", fmt.Errorf("stream callback: %w", err)
			}
		}
	}

	return full.String(), nil
}

func (c *OpenRouterClient) buildRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}
