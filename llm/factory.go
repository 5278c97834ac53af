// Provider identity, defaults and construction options.
//
// Quick Start:
//
//	chat, err := llm.NewChatMiddleware(ctx, llm.Config{
//	    Provider: llm.ProviderGoogleAI,
//	    Google:   &llm.GoogleAIConfig{APIKey: key},
//	})
//
//	resp, err := chat.Chat(ctx, []llm.ChatMessage{llm.UserMessage("What is JS")}, llm.ChatOptions{})

package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/richinex/gemway/tokens"
)

// ProviderType identifies a backend. The set is closed.
type ProviderType int

const (
	// ProviderGoogleAI is the Gemini direct API, authenticated by API key.
	ProviderGoogleAI ProviderType = iota + 1
	// ProviderVertexAI is Gemini hosted on Vertex AI, addressed by project and location.
	ProviderVertexAI
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderGoogleAI:
		return "google-ai"
	case ProviderVertexAI:
		return "vertex-ai"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the supported providers.
func (p ProviderType) Valid() bool {
	return p == ProviderGoogleAI || p == ProviderVertexAI
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google-ai", "google", "gemini":
		return ProviderGoogleAI, nil
	case "vertex-ai", "vertex":
		return ProviderVertexAI, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// Model identifiers shared by both adapters.
const (
	// DefaultChatModel is used for chat and stream when no model is set.
	DefaultChatModel = "gemini-1.5-pro"
	// DefaultEmbeddingModel is used by the embeddings middleware.
	DefaultEmbeddingModel = "text-embedding-004"
)

// DefaultVertexLocation is the region used when none is configured.
const DefaultVertexLocation = "us-central1"

// GoogleAIConfig configures the Gemini API adapter.
type GoogleAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// VertexAIConfig configures the Vertex AI adapter.
type VertexAIConfig struct {
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
	Model     string `yaml:"model"`
}

// adapterSettings collects AdapterOption values.
type adapterSettings struct {
	backend Generator
	counter tokens.Counter
	now     func() time.Time
}

// AdapterOption customizes adapter construction.
type AdapterOption func(*adapterSettings)

// WithBackend uses g instead of building a genai client. If g also
// implements Embedder, embeddings are served through it.
func WithBackend(g Generator) AdapterOption {
	return func(s *adapterSettings) {
		s.backend = g
	}
}

// WithTokenCounter sets the counter used for usage estimates.
func WithTokenCounter(c tokens.Counter) AdapterOption {
	return func(s *adapterSettings) {
		s.counter = c
	}
}

// WithClock sets the clock used for metadata timestamps.
func WithClock(now func() time.Time) AdapterOption {
	return func(s *adapterSettings) {
		s.now = now
	}
}

func newAdapterSettings(opts []AdapterOption) adapterSettings {
	var s adapterSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
