// Package config provides gemway settings loaded from environment variables
// or a YAML file.
//
// Settings are created via New() or Load() which handle:
// - Environment variable parsing with validation
// - Default value application
// - Translation into llm.Config for the middleware

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/richinex/gemway/llm"
	"github.com/richinex/gemway/tokens"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables read by New and Load.
const (
	EnvProvider        = "GEMWAY_PROVIDER"
	EnvAPIKey          = "GOOGLE_API_KEY"
	EnvAPIKeyAlt       = "GEMINI_API_KEY"
	EnvGoogleModel     = "GOOGLE_MODEL"
	EnvProject         = "GOOGLE_CLOUD_PROJECT"
	EnvLocation        = "GOOGLE_CLOUD_LOCATION"
	EnvVertexModel     = "VERTEX_MODEL"
	EnvTokenCounter    = "GEMWAY_TOKEN_COUNTER"
	EnvLogLevel        = "GEMWAY_LOG_LEVEL"
	EnvTemperature     = "GEMWAY_TEMPERATURE"
	EnvMaxOutputTokens = "GEMWAY_MAX_OUTPUT_TOKENS"
	EnvEmbeddingModel  = "GEMWAY_EMBEDDING_MODEL"
)

// Token counter names.
const (
	CounterHeuristic = "heuristic"
	CounterTiktoken  = "tiktoken"
)

const defaultProvider = "google-ai"

// Settings holds all gemway configuration.
// The Model fields of Google and Vertex name the chat model;
// EmbeddingModel names the embeddings model for either backend.
type Settings struct {
	Provider       string             `yaml:"provider"`
	Google         llm.GoogleAIConfig `yaml:"google"`
	Vertex         llm.VertexAIConfig `yaml:"vertex"`
	EmbeddingModel string             `yaml:"embedding_model"`
	Generation     GenerationConfig   `yaml:"generation"`
	TokenCounter   string             `yaml:"token_counter"`
	LogLevel       string             `yaml:"log_level"`
}

// GenerationConfig holds default generation parameters for calls that set none.
type GenerationConfig struct {
	Temperature     *float32 `yaml:"temperature"`
	MaxOutputTokens uint32   `yaml:"max_output_tokens"`
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"google":    "google-ai",
	"gemini":    "google-ai",
	"vertex":    "vertex-ai",
	"google-ai": "google-ai",
	"vertex-ai": "vertex-ai",
}

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to GEMWAY_PROVIDER, then google-ai.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	s := Settings{Provider: provider}
	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Load reads YAML settings from disk. Fields the file leaves empty are
// filled from environment variables, then the result is validated.
func Load(path string) (Settings, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Settings{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// applyEnv fills empty fields from the environment and applies defaults.
func (s *Settings) applyEnv() error {
	setIfEmpty(&s.Provider, os.Getenv(EnvProvider), defaultProvider)
	s.Provider = normalizeProvider(s.Provider)

	setIfEmpty(&s.Google.APIKey, os.Getenv(EnvAPIKey), os.Getenv(EnvAPIKeyAlt))
	setIfEmpty(&s.Google.Model, os.Getenv(EnvGoogleModel))
	setIfEmpty(&s.Vertex.ProjectID, os.Getenv(EnvProject))
	setIfEmpty(&s.Vertex.Location, os.Getenv(EnvLocation), llm.DefaultVertexLocation)
	setIfEmpty(&s.Vertex.Model, os.Getenv(EnvVertexModel))
	setIfEmpty(&s.EmbeddingModel, os.Getenv(EnvEmbeddingModel), llm.DefaultEmbeddingModel)
	setIfEmpty(&s.TokenCounter, os.Getenv(EnvTokenCounter), CounterHeuristic)
	setIfEmpty(&s.LogLevel, os.Getenv(EnvLogLevel), "info")

	if s.Generation.Temperature == nil {
		temp, err := getEnvFloat32(EnvTemperature)
		if err != nil {
			return err
		}
		s.Generation.Temperature = temp
	}

	if s.Generation.MaxOutputTokens == 0 {
		maxTokens, err := getEnvUint32(EnvMaxOutputTokens, 0)
		if err != nil {
			return err
		}
		s.Generation.MaxOutputTokens = maxTokens
	}

	return nil
}

// Validate performs sanity checks on the settings. Credentials are not
// checked here; the adapters reject missing ones at construction.
func (s Settings) Validate() error {
	if _, err := llm.ParseProviderType(s.Provider); err != nil {
		return err
	}

	switch s.TokenCounter {
	case CounterHeuristic, CounterTiktoken:
	default:
		return fmt.Errorf("unknown token counter: %q", s.TokenCounter)
	}

	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}

	if t := s.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("generation.temperature must be within [0, 2], got %v", *t)
	}
	return nil
}

// MiddlewareConfig returns the llm.Config for chat middleware.
func (s Settings) MiddlewareConfig() (llm.Config, error) {
	return s.middlewareConfig(s.Google.Model, s.Vertex.Model)
}

// EmbeddingsConfig returns the llm.Config for embeddings middleware. Both
// backend configs carry EmbeddingModel in place of the chat model.
func (s Settings) EmbeddingsConfig() (llm.Config, error) {
	return s.middlewareConfig(s.EmbeddingModel, s.EmbeddingModel)
}

func (s Settings) middlewareConfig(googleModel, vertexModel string) (llm.Config, error) {
	provider, err := llm.ParseProviderType(s.Provider)
	if err != nil {
		return llm.Config{}, err
	}

	google := s.Google
	google.Model = googleModel
	vertex := s.Vertex
	vertex.Model = vertexModel
	return llm.Config{
		Provider: provider,
		Google:   &google,
		Vertex:   &vertex,
	}, nil
}

// NewTokenCounter returns the configured token counter.
func (s Settings) NewTokenCounter() (tokens.Counter, error) {
	switch s.TokenCounter {
	case "", CounterHeuristic:
		return tokens.Heuristic{}, nil
	case CounterTiktoken:
		return tokens.NewTiktokenCounter(tokens.EncodingCL100kBase)
	default:
		return nil, fmt.Errorf("unknown token counter: %q", s.TokenCounter)
	}
}

// ChatOptions returns call options carrying the default generation parameters.
func (s Settings) ChatOptions() llm.ChatOptions {
	opts := llm.ChatOptions{MaxOutputTokens: int32(s.Generation.MaxOutputTokens)}
	if s.Generation.Temperature != nil {
		temp := *s.Generation.Temperature
		opts.Temperature = &temp
	}
	return opts
}

// SupportedProviders returns the canonical provider names.
func SupportedProviders() []string {
	return []string{llm.ProviderGoogleAI.String(), llm.ProviderVertexAI.String()}
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// setIfEmpty sets *dst to the first non-empty candidate when *dst is empty.
func setIfEmpty(dst *string, candidates ...string) {
	if *dst != "" {
		return
	}
	for _, c := range candidates {
		if c != "" {
			*dst = c
			return
		}
	}
}

// Environment variable helpers with proper error handling

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat32(key string) (*float32, error) {
	val := os.Getenv(key)
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	f32 := float32(f)
	return &f32, nil
}
