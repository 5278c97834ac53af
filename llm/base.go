// Base adapter: the shared chat, stream and embeddings flows.
//
// Information Hiding:
// - Message and option translation into genai request shapes
// - Usage estimation and metadata stamping
// - Hook points for backend-specific extraction
//
// Adapters compose a baseAdapter and fill in its hooks; the control flow
// lives here once.

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/gemway/metadata"
	"github.com/richinex/gemway/tokens"
	"google.golang.org/genai"
)

// baseAdapter implements Provider on top of a Generator and three hooks.
type baseAdapter struct {
	provider  ProviderType
	model     string
	generator Generator
	estimator tokens.Estimator
	tracker   metadata.Tracker

	// extractText returns the final text of a non-streaming response.
	extractText func(resp *genai.GenerateContentResponse) string
	// extractToken returns the incremental text carried by one stream chunk.
	extractToken func(chunk *genai.GenerateContentResponse) string
	// embedItem embeds one string. Nil when the backend surface has no
	// embedding capability.
	embedItem func(ctx context.Context, model, item string) ([]float32, error)
}

func newBaseAdapter(provider ProviderType, model string, generator Generator, s adapterSettings) baseAdapter {
	if model == "" {
		model = DefaultChatModel
	}
	return baseAdapter{
		provider:  provider,
		model:     model,
		generator: generator,
		estimator: tokens.Estimator{Counter: s.counter},
		tracker:   metadata.Tracker{Now: s.now},
	}
}

// Name returns the provider name.
func (b *baseAdapter) Name() string {
	return b.provider.String()
}

// Model returns the default model.
func (b *baseAdapter) Model() string {
	return b.model
}

// start resolves the model for a call and opens its metadata record.
func (b *baseAdapter) start(model string, extra map[string]any) (string, metadata.Record) {
	if model == "" {
		model = b.model
	}
	return model, b.tracker.Start(b.provider.String(), model, extra)
}

// Chat sends a chat completion request.
func (b *baseAdapter) Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (ChatResponse, error) {
	model, meta := b.start(opts.Model, opts.Metadata)
	contents, config := buildRequest(messages, opts)

	response, err := b.generator.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	text := b.extractText(response)
	if text == "" {
		return ChatResponse{}, fmt.Errorf("%s: %w", b.provider, ErrNoText)
	}

	usage := b.estimator.ChatUsage(messageContents(messages), text)
	return ChatResponse{
		Text:     text,
		Metadata: b.tracker.Finish(meta, &usage),
	}, nil
}

// Stream streams a chat completion through callbacks.
// On a backend failure OnError is invoked, OnDone is not, and the text
// received before the failure is returned with the error.
func (b *baseAdapter) Stream(ctx context.Context, messages []ChatMessage, callbacks StreamCallbacks, opts ChatOptions) (string, error) {
	model, meta := b.start(opts.Model, opts.Metadata)
	contents, config := buildRequest(messages, opts)

	// Emitted before the request: GenerateContentStream is lazy.
	callbacks.event(StreamEvent{Type: EventStart, Data: meta})

	var final strings.Builder
	for chunk, err := range b.generator.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			err = fmt.Errorf("stream error: %w", err)
			callbacks.fail(err)
			return final.String(), err
		}

		if token := b.extractToken(chunk); token != "" {
			final.WriteString(token)
			callbacks.token(token)
		}

		if reason := finishReason(chunk); reason != "" {
			callbacks.event(StreamEvent{Type: EventFinishReason, Data: reason})
		}
	}

	text := final.String()
	usage := b.estimator.ChatUsage(messageContents(messages), text)
	callbacks.done(text, b.tracker.Finish(meta, &usage))
	return text, nil
}

// Embeddings embeds each input in order, one backend call per input.
func (b *baseAdapter) Embeddings(ctx context.Context, input []string, opts EmbeddingsOptions) (EmbeddingsResponse, error) {
	if b.embedItem == nil {
		return EmbeddingsResponse{}, fmt.Errorf("%s embeddings: %w", b.provider, ErrUnsupported)
	}

	model, meta := b.start(opts.Model, opts.Metadata)

	// One call per input keeps output order equal to input order.
	vectors := make([][]float32, 0, len(input))
	for i, item := range input {
		if err := ctx.Err(); err != nil {
			return EmbeddingsResponse{}, err
		}
		vector, err := b.embedItem(ctx, model, item)
		if err != nil {
			return EmbeddingsResponse{}, fmt.Errorf("embedding input %d: %w", i, err)
		}
		vectors = append(vectors, vector)
	}

	usage := b.estimator.JoinedUsage(input, "")
	return EmbeddingsResponse{
		Model:      model,
		Embeddings: vectors,
		Metadata:   b.tracker.Finish(meta, &usage),
	}, nil
}

// buildRequest converts messages and options into genai request shapes.
func buildRequest(messages []ChatMessage, opts ChatOptions) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents, system := convertMessages(messages)
	config := generationConfig(opts)

	if system != "" {
		if config == nil {
			config = &genai.GenerateContentConfig{}
		}
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return contents, config
}

// convertMessages maps each message to one single-part Content, keeping
// order. System messages are returned separately, joined by newlines,
// because genai accepts them only as a system instruction.
func convertMessages(messages []ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system []string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(msg.Role)))
		}
	}

	return contents, strings.Join(system, "\n")
}

// generationConfig maps options 1:1. Unset options stay unset so the
// backend's defaults apply; with nothing set it returns nil.
func generationConfig(opts ChatOptions) *genai.GenerateContentConfig {
	if opts.Temperature == nil && opts.MaxOutputTokens == 0 && opts.TopP == nil &&
		opts.TopK == nil && len(opts.StopSequences) == 0 {
		return nil
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(*opts.Temperature)
	}
	if opts.TopP != nil {
		config.TopP = genai.Ptr(*opts.TopP)
	}
	if opts.TopK != nil {
		config.TopK = genai.Ptr(float32(*opts.TopK))
	}
	if len(opts.StopSequences) > 0 {
		config.StopSequences = append([]string(nil), opts.StopSequences...)
	}
	return config
}

func messageContents(messages []ChatMessage) []string {
	out := make([]string, len(messages))
	for i, msg := range messages {
		out[i] = msg.Content
	}
	return out
}

// finishReason returns the first candidate's finish reason, if any.
func finishReason(chunk *genai.GenerateContentResponse) string {
	if chunk == nil || len(chunk.Candidates) == 0 || chunk.Candidates[0] == nil {
		return ""
	}
	reason := chunk.Candidates[0].FinishReason
	if reason == "" || reason == genai.FinishReasonUnspecified {
		return ""
	}
	return string(reason)
}

// embedWith builds an embedItem hook around an Embedder.
func embedWith(provider ProviderType, e Embedder) func(ctx context.Context, model, item string) ([]float32, error) {
	return func(ctx context.Context, model, item string) ([]float32, error) {
		contents := []*genai.Content{genai.NewContentFromText(item, genai.RoleUser)}
		response, err := e.EmbedContent(ctx, model, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("embed content failed: %w", err)
		}
		if response == nil || len(response.Embeddings) == 0 ||
			response.Embeddings[0] == nil || len(response.Embeddings[0].Values) == 0 {
			return nil, fmt.Errorf("%s: %w", provider, ErrNoEmbedding)
		}
		return response.Embeddings[0].Values, nil
	}
}
