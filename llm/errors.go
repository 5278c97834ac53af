package llm

import "errors"

// Construction errors.
var (
	// ErrMissingAPIKey is returned when the Gemini API adapter has no API key.
	ErrMissingAPIKey = errors.New("API key is required for google-ai")

	// ErrMissingProject is returned when the Vertex AI adapter has no project.
	ErrMissingProject = errors.New("project ID is required for vertex-ai")

	// ErrUnknownProvider is returned for a provider outside the supported set.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Extraction errors.
var (
	// ErrNoText indicates the backend responded without usable text.
	ErrNoText = errors.New("no text extracted from response")

	// ErrNoEmbedding indicates the backend responded without an embedding.
	ErrNoEmbedding = errors.New("no embedding returned")
)

// ErrUnsupported indicates the backend surface cannot perform the operation.
var ErrUnsupported = errors.New("operation not supported")

// ErrInvalidProvider indicates a middleware whose adapter was never built.
var ErrInvalidProvider = errors.New("invalid provider initialization")
