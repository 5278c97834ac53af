// Vertex AI adapter using the official google.golang.org/genai SDK.
//
// Information Hiding:
// - Project/location addressing and Application Default Credentials
// - Text extraction from the nested candidate/content/part shape

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// VertexAIAdapter implements Provider for Gemini on Vertex AI.
type VertexAIAdapter struct {
	baseAdapter
	project  string
	location string
}

// NewVertexAIAdapter creates a Vertex AI adapter.
// Fails with ErrMissingProject before any client is built when cfg has no
// project. An empty location selects DefaultVertexLocation.
func NewVertexAIAdapter(ctx context.Context, cfg VertexAIConfig, opts ...AdapterOption) (*VertexAIAdapter, error) {
	if cfg.ProjectID == "" {
		return nil, ErrMissingProject
	}
	location := cfg.Location
	if location == "" {
		location = DefaultVertexLocation
	}

	settings := newAdapterSettings(opts)
	generator := settings.backend
	if generator == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			Project:  cfg.ProjectID,
			Location: location,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vertex-ai client: %w", err)
		}
		generator = client.Models
	}

	a := &VertexAIAdapter{
		baseAdapter: newBaseAdapter(ProviderVertexAI, cfg.Model, generator, settings),
		project:     cfg.ProjectID,
		location:    location,
	}
	a.extractText = firstPartText
	a.extractToken = firstPartText
	if embedder, ok := generator.(Embedder); ok {
		a.embedItem = embedWith(ProviderVertexAI, embedder)
	}
	return a, nil
}

// Project returns the Google Cloud project ID.
func (a *VertexAIAdapter) Project() string {
	return a.project
}

// Location returns the Vertex AI region.
func (a *VertexAIAdapter) Location() string {
	return a.location
}

// firstPartText returns the text of the first part of the first candidate.
func firstPartText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}
	part := candidate.Content.Parts[0]
	if part == nil {
		return ""
	}
	return part.Text
}

// Verify VertexAIAdapter implements Provider
var _ Provider = (*VertexAIAdapter)(nil)
