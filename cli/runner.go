// Command execution for CLI commands.
//
// Information Hiding:
// - Settings resolution and middleware construction hidden
// - Usage ledger recording hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/richinex/gemway/config"
	"github.com/richinex/gemway/internal/logging"
	"github.com/richinex/gemway/llm"
	"github.com/richinex/gemway/metadata"
	"github.com/richinex/gemway/storage"
	"github.com/richinex/gemway/tokens"
)

// Options holds CLI execution options.
type Options struct {
	Provider   string
	ConfigPath string
	Model      string
	UsageDB    string
	LogLevel   string

	// LogJSON writes JSON log lines instead of console output.
	LogJSON bool

	// Out receives command output; Log receives log lines. Both default to
	// stdout and stderr.
	Out io.Writer
	Log io.Writer

	// Backend replaces the SDK client built from credentials.
	Backend llm.Generator
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		UsageDB: ".gemway/usage.db",
	}
}

func (o Options) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

// session bundles everything a command needs for one run.
type session struct {
	settings config.Settings
	cfg      llm.Config
	opts     []llm.MiddlewareOption
	ledger   *storage.SqliteStorage
	counter  tokens.Counter
	out      io.Writer
}

func newSession(opts Options) (*session, error) {
	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := settings.MiddlewareConfig()
	if err != nil {
		return nil, err
	}

	counter, err := settings.NewTokenCounter()
	if err != nil {
		return nil, err
	}

	level := settings.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}

	logger := logging.NewConsole(level, opts.Log)
	if opts.LogJSON {
		logger = logging.New(level, opts.Log)
	}

	adapterOpts := []llm.AdapterOption{llm.WithTokenCounter(counter)}
	if opts.Backend != nil {
		adapterOpts = append(adapterOpts, llm.WithBackend(opts.Backend))
	}

	s := &session{
		settings: settings,
		cfg:      cfg,
		counter:  counter,
		out:      opts.out(),
		opts: []llm.MiddlewareOption{
			llm.WithAdapterOptions(adapterOpts...),
			llm.WithLogger(logger),
		},
	}

	if opts.UsageDB != "" {
		ledger, err := storage.OpenSqlite(opts.UsageDB)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to open usage database: %w", err)
		}
		s.ledger = ledger
	}
	return s, nil
}

func (s *session) close() {
	if s.ledger != nil {
		s.ledger.Close()
	}
	if c, ok := s.counter.(interface{ Close() }); ok {
		c.Close()
	}
}

// record stores a finished call in the usage ledger when one is open.
func (s *session) record(ctx context.Context, op string, meta metadata.Record) error {
	if s.ledger == nil {
		return nil
	}
	if err := s.ledger.Save(ctx, op, meta); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

func loadSettings(opts Options) (config.Settings, error) {
	if opts.ConfigPath == "" {
		return config.New(opts.Provider)
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.Provider != "" {
		settings.Provider = opts.Provider
		if err := settings.Validate(); err != nil {
			return config.Settings{}, err
		}
	}
	return settings, nil
}

func buildMessages(prompt, system string) []llm.ChatMessage {
	var messages []llm.ChatMessage
	if system != "" {
		messages = append(messages, llm.SystemMessage(system))
	}
	return append(messages, llm.UserMessage(prompt))
}

// Chat sends one prompt and prints the reply followed by its metadata.
func Chat(ctx context.Context, prompt, system string, opts Options) error {
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	mw, err := llm.NewChatMiddleware(ctx, s.cfg, s.opts...)
	if err != nil {
		return err
	}

	chatOpts := s.settings.ChatOptions()
	chatOpts.Model = opts.Model

	resp, err := mw.Chat(ctx, buildMessages(prompt, system), chatOpts)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "%s\n\n", resp.Text)
	if err := printJSON(s.out, resp.Metadata); err != nil {
		return err
	}
	return s.record(ctx, storage.OpChat, resp.Metadata)
}

// Stream prints tokens as they arrive, then the metadata.
// A nil temperature keeps the configured default.
func Stream(ctx context.Context, prompt, system string, temperature *float32, opts Options) error {
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	mw, err := llm.NewChatMiddleware(ctx, s.cfg, s.opts...)
	if err != nil {
		return err
	}

	chatOpts := s.settings.ChatOptions()
	chatOpts.Model = opts.Model
	if temperature != nil {
		chatOpts.Temperature = temperature
	}

	var meta metadata.Record
	callbacks := llm.StreamCallbacks{
		OnToken: func(token string) {
			fmt.Fprint(s.out, token)
		},
		OnDone: func(_ string, m metadata.Record) {
			meta = m
		},
	}

	if _, err := mw.Stream(ctx, buildMessages(prompt, system), callbacks, chatOpts); err != nil {
		fmt.Fprintln(s.out)
		return err
	}

	fmt.Fprint(s.out, "\n\n")
	if err := printJSON(s.out, meta); err != nil {
		return err
	}
	return s.record(ctx, storage.OpStream, meta)
}

// embeddingSummary is printed instead of the raw vectors.
type embeddingSummary struct {
	Model      string          `json:"model"`
	Count      int             `json:"count"`
	Dimensions []int           `json:"dimensions"`
	Metadata   metadata.Record `json:"metadata"`
}

// Embed embeds the inputs and prints vector counts and dimensions.
func Embed(ctx context.Context, inputs []string, opts Options) error {
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.settings.EmbeddingsConfig()
	if err != nil {
		return err
	}

	mw, err := llm.NewEmbeddingsMiddleware(ctx, cfg, s.opts...)
	if err != nil {
		return err
	}

	resp, err := mw.Embed(ctx, inputs, llm.EmbeddingsOptions{Model: opts.Model})
	if err != nil {
		return err
	}

	summary := embeddingSummary{
		Model:    resp.Model,
		Count:    len(resp.Embeddings),
		Metadata: resp.Metadata,
	}
	for _, v := range resp.Embeddings {
		summary.Dimensions = append(summary.Dimensions, len(v))
	}
	if err := printJSON(s.out, summary); err != nil {
		return err
	}
	return s.record(ctx, storage.OpEmbeddings, resp.Metadata)
}

// usageReport is the output of the usage command.
type usageReport struct {
	Totals storage.Summary `json:"totals"`
	Recent []storage.Entry `json:"recent"`
}

// Usage prints ledger totals and the most recent entries. A non-empty
// provider restricts both to that provider.
func Usage(ctx context.Context, provider string, limit int, opts Options) error {
	if opts.UsageDB == "" {
		return fmt.Errorf("no usage database configured")
	}

	ledger, err := storage.OpenSqlite(opts.UsageDB)
	if err != nil {
		return fmt.Errorf("failed to open usage database: %w", err)
	}
	defer ledger.Close()

	if provider != "" {
		p, err := llm.ParseProviderType(provider)
		if err != nil {
			return err
		}
		provider = p.String()
	}

	totals, err := ledger.Totals(ctx, provider)
	if err != nil {
		return err
	}
	recent, err := ledger.List(ctx, provider, limit)
	if err != nil {
		return err
	}

	return printJSON(opts.out(), usageReport{Totals: totals, Recent: recent})
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
