// Routing middleware - picks one adapter at construction and forwards to it.

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/gemway/metadata"
	"github.com/rs/zerolog"
)

// Config selects a provider and carries its backend configuration.
// Only the configuration matching Provider is used.
type Config struct {
	Provider ProviderType
	Google   *GoogleAIConfig
	Vertex   *VertexAIConfig
}

type middlewareSettings struct {
	adapterOpts []AdapterOption
	logger      zerolog.Logger
}

// MiddlewareOption customizes middleware construction.
type MiddlewareOption func(*middlewareSettings)

// WithAdapterOptions passes options to the adapter the middleware builds.
func WithAdapterOptions(opts ...AdapterOption) MiddlewareOption {
	return func(s *middlewareSettings) {
		s.adapterOpts = append(s.adapterOpts, opts...)
	}
}

// WithLogger sets the logger for completed-call debug events.
func WithLogger(logger zerolog.Logger) MiddlewareOption {
	return func(s *middlewareSettings) {
		s.logger = logger
	}
}

// router owns exactly one adapter for its lifetime.
type router struct {
	provider ProviderType
	google   *GoogleAIAdapter
	vertex   *VertexAIAdapter
	logger   zerolog.Logger
}

func newRouter(ctx context.Context, cfg Config, defaultModel string, opts []MiddlewareOption) (router, error) {
	settings := middlewareSettings{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&settings)
	}

	if !cfg.Provider.Valid() {
		return router{}, fmt.Errorf("%w: %v", ErrUnknownProvider, cfg.Provider)
	}

	r := router{provider: cfg.Provider, logger: settings.logger}

	switch cfg.Provider {
	case ProviderGoogleAI:
		var google GoogleAIConfig
		if cfg.Google != nil {
			google = *cfg.Google
		}
		if google.Model == "" {
			google.Model = defaultModel
		}
		adapter, err := NewGoogleAIAdapter(ctx, google, settings.adapterOpts...)
		if err != nil {
			return router{}, err
		}
		r.google = adapter

	case ProviderVertexAI:
		var vertex VertexAIConfig
		if cfg.Vertex != nil {
			vertex = *cfg.Vertex
		}
		if vertex.Model == "" {
			vertex.Model = defaultModel
		}
		adapter, err := NewVertexAIAdapter(ctx, vertex, settings.adapterOpts...)
		if err != nil {
			return router{}, err
		}
		r.vertex = adapter
	}

	return r, nil
}

// adapter returns the live adapter for the configured provider.
func (r *router) adapter() (Provider, error) {
	switch {
	case r.provider == ProviderGoogleAI && r.google != nil:
		return r.google, nil
	case r.provider == ProviderVertexAI && r.vertex != nil:
		return r.vertex, nil
	default:
		return nil, ErrInvalidProvider
	}
}

// Provider returns the configured provider.
func (r *router) Provider() ProviderType {
	return r.provider
}

// Model returns the default model of the live adapter, or "" if none.
func (r *router) Model() string {
	a, err := r.adapter()
	if err != nil {
		return ""
	}
	return a.Model()
}

func (r *router) logDone(op string, meta metadata.Record) {
	ev := r.logger.Debug().
		Str("op", op).
		Str("provider", meta.Provider).
		Str("model", meta.Model).
		Str("request_id", meta.RequestID)
	if meta.LatencyMs != nil {
		ev = ev.Int64("latency_ms", *meta.LatencyMs)
	}
	if meta.TokenUsage != nil {
		ev = ev.Int("total_tokens", meta.TokenUsage.TotalTokens)
	}
	ev.Msg("request completed")
}

// ChatMiddleware exposes chat and streaming over the configured provider.
type ChatMiddleware struct {
	router
}

// NewChatMiddleware builds the adapter for cfg.Provider.
// Adapter construction errors (missing key or project) are returned as is.
func NewChatMiddleware(ctx context.Context, cfg Config, opts ...MiddlewareOption) (*ChatMiddleware, error) {
	r, err := newRouter(ctx, cfg, "", opts)
	if err != nil {
		return nil, err
	}
	return &ChatMiddleware{router: r}, nil
}

// Chat sends a chat completion request.
func (m *ChatMiddleware) Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (ChatResponse, error) {
	a, err := m.adapter()
	if err != nil {
		return ChatResponse{}, err
	}
	resp, err := a.Chat(ctx, messages, opts)
	if err != nil {
		return ChatResponse{}, err
	}
	m.logDone("chat", resp.Metadata)
	return resp, nil
}

// Stream streams a chat completion through callbacks.
func (m *ChatMiddleware) Stream(ctx context.Context, messages []ChatMessage, callbacks StreamCallbacks, opts ChatOptions) (string, error) {
	a, err := m.adapter()
	if err != nil {
		return "", err
	}

	onDone := callbacks.OnDone
	callbacks.OnDone = func(text string, meta metadata.Record) {
		m.logDone("stream", meta)
		if onDone != nil {
			onDone(text, meta)
		}
	}
	return a.Stream(ctx, messages, callbacks, opts)
}

// StreamTo streams a chat completion, sending each token on chunks.
// Sends block until received or ctx is done. chunks is not closed.
// The returned response carries the text actually delivered on chunks,
// which may be empty, and the finished metadata. Once ctx is done no
// further tokens are delivered and ctx.Err() is returned.
func (m *ChatMiddleware) StreamTo(ctx context.Context, messages []ChatMessage, chunks chan<- string, opts ChatOptions) (ChatResponse, error) {
	var resp ChatResponse
	var delivered strings.Builder
	callbacks := StreamCallbacks{
		OnToken: func(token string) {
			if ctx.Err() != nil {
				return
			}
			select {
			case chunks <- token:
				delivered.WriteString(token)
			case <-ctx.Done():
			}
		},
		OnDone: func(_ string, meta metadata.Record) {
			resp.Metadata = meta
		},
	}

	_, err := m.Stream(ctx, messages, callbacks, opts)
	resp.Text = delivered.String()
	if err != nil {
		return resp, err
	}
	if err := ctx.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

// EmbeddingsMiddleware exposes embeddings over the configured provider.
type EmbeddingsMiddleware struct {
	router
}

// NewEmbeddingsMiddleware builds the adapter for cfg.Provider. When the
// provider config names no model, DefaultEmbeddingModel is used.
func NewEmbeddingsMiddleware(ctx context.Context, cfg Config, opts ...MiddlewareOption) (*EmbeddingsMiddleware, error) {
	r, err := newRouter(ctx, cfg, DefaultEmbeddingModel, opts)
	if err != nil {
		return nil, err
	}
	return &EmbeddingsMiddleware{router: r}, nil
}

// Embed returns one vector per input, in input order.
func (m *EmbeddingsMiddleware) Embed(ctx context.Context, input []string, opts EmbeddingsOptions) (EmbeddingsResponse, error) {
	a, err := m.adapter()
	if err != nil {
		return EmbeddingsResponse{}, err
	}
	resp, err := a.Embeddings(ctx, input, opts)
	if err != nil {
		return EmbeddingsResponse{}, err
	}
	m.logDone("embeddings", resp.Metadata)
	return resp, nil
}

// EmbedText embeds a single string.
func (m *EmbeddingsMiddleware) EmbedText(ctx context.Context, text string, opts EmbeddingsOptions) (EmbeddingsResponse, error) {
	return m.Embed(ctx, []string{text}, opts)
}
