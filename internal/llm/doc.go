// Package llm abstracts text generation behind a small Client
// interface so the rest of Sankofa never touches a provider SDK
// directly.
//
// Two implementations exist: GenkitClient resolves a model registered
// on a Genkit instance (Gemini and Ollama arrive this way), and
// OpenRouterClient speaks the OpenAI-compatible chat completions API.
// RetryClient wraps either with rate limiting, exponential backoff,
// and a circuit breaker that opens after repeated exhausted calls;
// streaming calls are only retried while no text has reached the
// caller.
package llm
