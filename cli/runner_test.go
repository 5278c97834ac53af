package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richinex/gemway/config"
	"github.com/richinex/gemway/storage"
	"google.golang.org/genai"
)

// stubBackend answers every call with fixed text and 3-dimensional vectors.
type stubBackend struct {
	chunks []string
}

func (b stubBackend) response(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
	}
}

func (b stubBackend) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.response(strings.Join(b.chunks, "")), nil
}

func (b stubBackend) GenerateContentStream(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range b.chunks {
			if !yield(b.response(c), nil) {
				return
			}
		}
	}
}

func (b stubBackend) EmbedContent(context.Context, string, []*genai.Content, *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
	}, nil
}

func setupEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvProvider, config.EnvAPIKeyAlt, config.EnvGoogleModel, config.EnvProject,
		config.EnvLocation, config.EnvVertexModel, config.EnvTokenCounter, config.EnvLogLevel,
		config.EnvTemperature, config.EnvMaxOutputTokens, config.EnvEmbeddingModel,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvAPIKey, "test-key")
}

func testOptions(t *testing.T, out *bytes.Buffer) Options {
	t.Helper()
	return Options{
		Provider: "google-ai",
		UsageDB:  filepath.Join(t.TempDir(), "usage.db"),
		Out:      out,
		Log:      &bytes.Buffer{},
		Backend:  stubBackend{chunks: []string{"JavaScript ", "is a language."}},
	}
}

func TestChatRecordsUsage(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer
	opts := testOptions(t, &out)
	ctx := context.Background()

	if err := Chat(ctx, "What is JS", "Be brief.", opts); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !strings.Contains(out.String(), "JavaScript is a language.") {
		t.Errorf("expected reply in output, got %q", out.String())
	}
	if !strings.Contains(out.String(), `"requestId"`) {
		t.Errorf("expected metadata JSON in output, got %q", out.String())
	}

	ledger, err := storage.OpenSqlite(opts.UsageDB)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	defer ledger.Close()

	entries, err := ledger.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Operation != storage.OpChat {
		t.Fatalf("expected one chat entry, got %+v", entries)
	}
	if entries[0].Record.Provider != "google-ai" {
		t.Errorf("unexpected provider %q", entries[0].Record.Provider)
	}
}

func TestChatLogJSON(t *testing.T) {
	setupEnv(t)
	var out, logs bytes.Buffer
	opts := testOptions(t, &out)
	opts.Log = &logs
	opts.LogLevel = "debug"
	opts.LogJSON = true

	if err := Chat(context.Background(), "What is JS", "", opts); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	line := strings.TrimSpace(logs.String())
	var event map[string]any
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", line, err)
	}
	if event["message"] != "request completed" || event["provider"] != "google-ai" {
		t.Errorf("unexpected log event: %v", event)
	}
}

func TestStreamPrintsTokens(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer
	opts := testOptions(t, &out)
	opts.UsageDB = ""

	temp := float32(0.3)
	if err := Stream(context.Background(), "What is JS", "", &temp, opts); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "JavaScript is a language.") {
		t.Errorf("expected streamed text first, got %q", out.String())
	}
}

func TestEmbedPrintsSummary(t *testing.T) {
	setupEnv(t)
	t.Setenv(config.EnvGoogleModel, "gemini-1.5-pro")
	var out bytes.Buffer
	opts := testOptions(t, &out)
	opts.UsageDB = ""

	if err := Embed(context.Background(), []string{"a", "b"}, opts); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	var summary embeddingSummary
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out.String())
	}
	if summary.Count != 2 || len(summary.Dimensions) != 2 || summary.Dimensions[0] != 3 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.Model != "text-embedding-004" {
		t.Errorf("expected default embedding model, got %q", summary.Model)
	}
}

func TestUsageReport(t *testing.T) {
	setupEnv(t)
	t.Setenv(config.EnvProject, "test-project")
	var out bytes.Buffer
	opts := testOptions(t, &out)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := Chat(ctx, "hello", "", opts); err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
	}
	vertexOpts := opts
	vertexOpts.Provider = "vertex-ai"
	if err := Chat(ctx, "hello", "", vertexOpts); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	out.Reset()
	if err := Usage(ctx, "gemini", 10, opts); err != nil {
		t.Fatalf("Usage failed: %v", err)
	}

	var report usageReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out.String())
	}
	if report.Totals.Requests != 2 {
		t.Errorf("expected 2 google-ai requests, got %d", report.Totals.Requests)
	}
	if len(report.Recent) != 2 {
		t.Fatalf("expected 2 recent entries, got %d", len(report.Recent))
	}
	for _, e := range report.Recent {
		if e.Record.Provider != "google-ai" {
			t.Errorf("filtered report lists provider %q", e.Record.Provider)
		}
	}

	out.Reset()
	if err := Usage(ctx, "", 1, opts); err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	report = usageReport{}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out.String())
	}
	if report.Totals.Requests != 3 || len(report.Recent) != 1 {
		t.Errorf("unexpected unfiltered report: %d requests, %d recent", report.Totals.Requests, len(report.Recent))
	}
}

func TestChatMissingKey(t *testing.T) {
	setupEnv(t)
	t.Setenv(config.EnvAPIKey, "")
	var out bytes.Buffer
	opts := testOptions(t, &out)

	if err := Chat(context.Background(), "hello", "", opts); err == nil {
		t.Error("expected error without an API key")
	}
}

func TestUsageRequiresDatabase(t *testing.T) {
	if err := Usage(context.Background(), "", 10, Options{}); err == nil {
		t.Error("expected error without a usage database")
	}
}
