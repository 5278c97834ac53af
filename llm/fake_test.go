package llm

import (
	"context"
	"iter"
	"sync"

	"google.golang.org/genai"
)

// fakeBackend implements Generator and Embedder for testing.
type fakeBackend struct {
	mu sync.Mutex

	text      string   // returned by GenerateContent; "" means no candidates
	chunks    []string // yielded by GenerateContentStream, one per chunk
	genErr    error
	streamErr error // yielded after all chunks
	embedErr  error
	noValues  bool // EmbedContent returns an empty embedding

	generateCalls int
	streamCalls   int
	embedCalls    int
	lastModel     string
	lastContents  []*genai.Content
	lastConfig    *genai.GenerateContentConfig
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

func (f *fakeBackend) record(model string, contents []*genai.Content, config *genai.GenerateContentConfig) {
	f.lastModel = model
	f.lastContents = contents
	f.lastConfig = config
}

func (f *fakeBackend) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generateCalls++
	f.record(model, contents, config)
	if f.genErr != nil {
		return nil, f.genErr
	}
	if f.text == "" {
		return &genai.GenerateContentResponse{}, nil
	}
	return textResponse(f.text), nil
}

func (f *fakeBackend) GenerateContentStream(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.mu.Lock()
	f.streamCalls++
	f.record(model, contents, config)
	chunks := append([]string(nil), f.chunks...)
	streamErr := f.streamErr
	f.mu.Unlock()

	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for i, c := range chunks {
			resp := textResponse(c)
			if i == len(chunks)-1 && streamErr == nil {
				resp.Candidates[0].FinishReason = genai.FinishReasonStop
			}
			if !yield(resp, nil) {
				return
			}
		}
		if streamErr != nil {
			yield(nil, streamErr)
		}
	}
}

// EmbedContent returns [call index, input length] so tests can check order.
func (f *fakeBackend) EmbedContent(_ context.Context, model string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	index := f.embedCalls
	f.embedCalls++
	f.lastModel = model
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.noValues {
		return &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{}}}, nil
	}

	text := contents[0].Parts[0].Text
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{
			Values: []float32{float32(index), float32(len(text))},
		}},
	}, nil
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls + f.streamCalls + f.embedCalls
}

// generatorOnly hides the Embedder methods of a backend.
type generatorOnly struct {
	Generator
}
