package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func TestNewOpenRouter(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		if _, err := NewOpenRouter(OpenRouterConfig{}, nil); err == nil {
			t.Error("NewOpenRouter() expected error without API key")
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		c, err := NewOpenRouter(OpenRouterConfig{APIKey: "test-key"}, nil)
		if err != nil {
			t.Fatalf("NewOpenRouter() unexpected error: %v", err)
		}
		if c.model != DefaultOpenRouterModel {
			t.Errorf("model = %q, want %q", c.model, DefaultOpenRouterModel)
		}
	})
}

func TestOpenRouterGenerate(t *testing.T) {
	var captured capturedRequest
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Ojekoo!"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c, err := NewOpenRouter(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test/model",
	}, nil)
	if err != nil {
		t.Fatalf("NewOpenRouter() unexpected error: %v", err)
	}

	got, err := c.Generate(context.Background(), Request{
		System: "You are Nii Obodai.",
		History: []Message{
			{Role: RoleUser, Content: "morning greeting?"},
			{Role: RoleAssistant, Content: "Ojekoo."},
		},
		Prompt:      "And the reply?",
		Temperature: 0.4,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if got != "Ojekoo!" {
		t.Errorf("Generate() = %q, want Ojekoo!", got)
	}

	if authHeader != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer key", authHeader)
	}
	if captured.Model != "test/model" {
		t.Errorf("model = %q, want test/model", captured.Model)
	}
	if captured.Temperature != 0.4 || captured.MaxTokens != 256 {
		t.Errorf("temperature/max_tokens = %v/%d, want 0.4/256", captured.Temperature, captured.MaxTokens)
	}

	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(captured.Messages) != len(wantRoles) {
		t.Fatalf("sent %d messages, want %d", len(captured.Messages), len(wantRoles))
	}
	for i, want := range wantRoles {
		if captured.Messages[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, captured.Messages[i].Role, want)
		}
	}
	if last := captured.Messages[len(captured.Messages)-1]; last.Content != "And the reply?" {
		t.Errorf("final message = %q, want the prompt", last.Content)
	}
}

func TestOpenRouterGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"model exploded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c, err := NewOpenRouter(OpenRouterConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewOpenRouter() unexpected error: %v", err)
	}

	if _, err := c.Generate(context.Background(), Request{Prompt: "q"}); err == nil {
		t.Error("Generate() expected error from 500 response")
	}
}

func TestOpenRouterGenerateStream(t *testing.T) {
	t.Run("accumulates streamed deltas", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req capturedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if !req.Stream {
				http.Error(w, "expected streaming request", http.StatusBadRequest)
				return
			}

			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, delta := range []string{"Oje", "koo", "!"} {
				fmt.Fprintf(w, "data: {\"id\":\"gen-1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
				flusher.Flush()
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
		}))
		defer srv.Close()

		c, err := NewOpenRouter(OpenRouterConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
		if err != nil {
			t.Fatalf("NewOpenRouter() unexpected error: %v", err)
		}

		var chunks []string
		got, err := c.GenerateStream(context.Background(), Request{Prompt: "greet"},
			func(_ context.Context, chunk string) error {
				chunks = append(chunks, chunk)
				return nil
			})
		if err != nil {
			t.Fatalf("GenerateStream() unexpected error: %v", err)
		}
		if got != "Ojekoo!" {
			t.Errorf("GenerateStream() = %q, want Ojekoo!", got)
		}
		if len(chunks) != 3 {
			t.Errorf("delivered %d chunks, want 3", len(chunks))
		}
	})

	t.Run("callback errors abort the stream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			fmt.Fprint(w, "data: {\"id\":\"gen-1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"chunk\"}}]}\n\n")
			flusher.Flush()
			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
		}))
		defer srv.Close()

		c, err := NewOpenRouter(OpenRouterConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
		if err != nil {
			t.Fatalf("NewOpenRouter() unexpected error: %v", err)
		}

		abort := errors.New("listener gone")
		_, err = c.GenerateStream(context.Background(), Request{Prompt: "greet"},
			func(_ context.Context, _ string) error { return abort })
		if !errors.Is(err, abort) {
			t.Errorf("GenerateStream() error = %v, want the callback error", err)
		}
	})
}
