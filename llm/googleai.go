// Gemini API adapter using the official google.golang.org/genai SDK.
//
// Information Hiding:
// - API key authentication and client creation
// - Text extraction via the SDK's response accessor
// - Embedding availability on the backend surface in use

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleAIAdapter implements Provider for the Gemini direct API.
type GoogleAIAdapter struct {
	baseAdapter
}

// NewGoogleAIAdapter creates a Gemini API adapter.
// Fails with ErrMissingAPIKey before any client is built when cfg has no key.
func NewGoogleAIAdapter(ctx context.Context, cfg GoogleAIConfig, opts ...AdapterOption) (*GoogleAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	settings := newAdapterSettings(opts)
	generator := settings.backend
	if generator == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize google-ai client: %w", err)
		}
		generator = client.Models
	}

	a := &GoogleAIAdapter{baseAdapter: newBaseAdapter(ProviderGoogleAI, cfg.Model, generator, settings)}
	a.extractText = responseText
	a.extractToken = responseText
	if embedder, ok := generator.(Embedder); ok {
		a.embedItem = embedWith(ProviderGoogleAI, embedder)
	}
	return a, nil
}

// responseText returns the concatenated text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

// Verify GoogleAIAdapter implements Provider
var _ Provider = (*GoogleAIAdapter)(nil)
