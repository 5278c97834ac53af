// Package llm provides a uniform chat, streaming and embeddings API over
// the Gemini direct API and Vertex AI.
//
// Each adapter hides:
// - genai client initialization and authentication
// - Message and generation-parameter translation
// - Backend-specific response extraction
//
// Adapters add no retries, rate limiting or caching: every call reaches the
// backend exactly once.

package llm

import (
	"context"
	"iter"

	"google.golang.org/genai"
)

// Provider is the capability contract every adapter satisfies.
// Implementations are safe for concurrent use.
type Provider interface {
	// Name returns the provider identity ("google-ai" or "vertex-ai").
	Name() string

	// Model returns the adapter's default model.
	Model() string

	// Chat sends a conversation and returns the generated text.
	// Fails with ErrNoText when the backend returns no text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (ChatResponse, error)

	// Stream sends a conversation, emitting tokens through callbacks as
	// they arrive. Returns the fully assembled text.
	Stream(ctx context.Context, messages []ChatMessage, callbacks StreamCallbacks, opts ChatOptions) (string, error)

	// Embeddings returns one vector per input string, in input order.
	Embeddings(ctx context.Context, input []string, opts EmbeddingsOptions) (EmbeddingsResponse, error)
}

// Generator is the generation surface of a genai backend.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Embedder is the optional embedding surface of a genai backend.
// A Generator that does not also implement Embedder cannot serve
// embeddings and adapters report ErrUnsupported.
type Embedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

var (
	_ Generator = (*genai.Models)(nil)
	_ Embedder  = (*genai.Models)(nil)
)
