package gemini_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// newTestClient returns a client whose API calls are answered by handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *genai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	return client
}

// textResponse answers generateContent calls with text.
func textResponse(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			}},
		})
	}
}

// embedResponse answers embedding calls with values, in both the single
// and batch response shapes.
func embedResponse(values []float32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding":  map[string]any{"values": values},
			"embeddings": []any{map[string]any{"values": values}},
		})
	}
}

var tech = docingest.TechnologyMetadata{
	Category:         docingest.CategoryFramework,
	Language:         "rust",
	Framework:        "tauri",
	FrameworkVersion: "2.0",
}

func TestCleaner_Clean(t *testing.T) {
	t.Parallel()

	t.Run("returns cleaned markdown", func(t *testing.T) {
		t.Parallel()

		var body string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			body = string(b)
			textResponse("```markdown\n# Intro\n\nHello\n```")(w, r)
		})

		got, err := gemini.NewCleaner(client).Clean(context.Background(), "# Intro\n\nHello\n\nEdit this page", tech, docingest.LLMOptions{})

		require.NoError(t, err)
		assert.Equal(t, "# Intro\n\nHello", got)
		assert.Contains(t, body, "Framework: tauri 2.0")
	})

	t.Run("wraps API errors as cleanup failures", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
		})

		_, err := gemini.NewCleaner(client).Clean(context.Background(), "# Intro", tech, docingest.LLMOptions{})

		assert.Equal(t, docingest.ECLEANUP, docingest.ErrorCode(err))
	})

	t.Run("rejects empty response", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, textResponse("  "))

		_, err := gemini.NewCleaner(client).Clean(context.Background(), "# Intro", tech, docingest.LLMOptions{})

		assert.Equal(t, docingest.ECLEANUP, docingest.ErrorCode(err))
	})

	t.Run("requires markdown", func(t *testing.T) {
		t.Parallel()

		_, err := gemini.NewCleaner(nil).Clean(context.Background(), " ", tech, docingest.LLMOptions{})

		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
	})

	t.Run("requires client", func(t *testing.T) {
		t.Parallel()

		_, err := gemini.NewCleaner(nil).Clean(context.Background(), "# Intro", tech, docingest.LLMOptions{})

		assert.Equal(t, docingest.EUNAVAILABLE, docingest.ErrorCode(err))
	})
}

func TestBuildCleanConfig(t *testing.T) {
	t.Parallel()

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		config := gemini.BuildCleanConfig(docingest.LLMOptions{Temperature: 0.7, MaxTokens: 4096})

		require.NotNil(t, config.SystemInstruction)
		require.NotNil(t, config.Temperature)
		assert.InDelta(t, 0.7, *config.Temperature, 0.001)
		assert.Equal(t, int32(4096), config.MaxOutputTokens)
	})

	t.Run("defaults temperature", func(t *testing.T) {
		t.Parallel()

		config := gemini.BuildCleanConfig(docingest.LLMOptions{})

		require.NotNil(t, config.Temperature)
		assert.InDelta(t, gemini.DefaultTemperature, *config.Temperature, 0.001)
		assert.Zero(t, config.MaxOutputTokens)
	})
}

func TestBuildCleanPrompt(t *testing.T) {
	t.Parallel()

	prompt := gemini.BuildCleanPrompt("# Title", docingest.TechnologyMetadata{Category: docingest.CategoryLibrary, Library: "serde"})

	assert.Contains(t, prompt, "Library: serde")
	assert.Contains(t, prompt, "<markdown>\n# Title\n</markdown>")
}

func TestStripFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "# A", "# A"},
		{"fenced with language", "```markdown\n# A\n```", "# A"},
		{"fenced without language", "```\n[1]\n```", "[1]"},
		{"inner fence kept", "# A\n\n```go\nx := 1\n```", "# A\n\n```go\nx := 1\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, gemini.StripFence(tt.in))
		})
	}
}

func TestChunker_Chunk(t *testing.T) {
	t.Parallel()

	t.Run("parses structured response", func(t *testing.T) {
		t.Parallel()

		var req map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&req)
			textResponse(`[{"title":"Install","description":"How to install.","content":"cargo add tauri","concepts":["cargo"]}]`)(w, r)
		})

		got, err := gemini.NewChunker(client).Chunk(context.Background(), "# Install\n\ncargo add tauri", tech, docingest.ChunkOptions{ExtractConcepts: true})

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Install", got[0].Title)
		assert.Equal(t, "cargo add tauri", got[0].Content)
		assert.Equal(t, []string{"cargo"}, got[0].Concepts)
		assert.Contains(t, strings.ToLower(toJSON(t, req)), "application/json")
	})

	t.Run("wraps invalid JSON as chunking failure", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, textResponse("not json"))

		_, err := gemini.NewChunker(client).Chunk(context.Background(), "# A", tech, docingest.ChunkOptions{})

		assert.Equal(t, docingest.ECHUNK, docingest.ErrorCode(err))
	})
}

func TestBuildChunkConfig(t *testing.T) {
	t.Parallel()

	t.Run("requests JSON array of snippets", func(t *testing.T) {
		t.Parallel()

		config := gemini.BuildChunkConfig(docingest.ChunkOptions{})

		assert.Equal(t, "application/json", config.ResponseMIMEType)
		require.NotNil(t, config.ResponseSchema)
		assert.Equal(t, genai.TypeArray, config.ResponseSchema.Type)
		require.NotNil(t, config.ResponseSchema.Items)
		assert.ElementsMatch(t, []string{"title", "description", "content"}, config.ResponseSchema.Items.Required)
		assert.NotContains(t, config.ResponseSchema.Items.Properties, "concepts")
	})

	t.Run("adds concepts when extracting", func(t *testing.T) {
		t.Parallel()

		config := gemini.BuildChunkConfig(docingest.ChunkOptions{ExtractConcepts: true})

		assert.Contains(t, config.ResponseSchema.Items.Properties, "concepts")
		assert.Contains(t, config.ResponseSchema.Items.Required, "concepts")
	})
}

func TestParseChunks(t *testing.T) {
	t.Parallel()

	t.Run("drops empty snippets and fills titles", func(t *testing.T) {
		t.Parallel()

		got, err := gemini.ParseChunks(`[
			{"title":"","description":"d","content":"## Events\nListen for events."},
			{"title":"Empty","description":"","content":"  "}
		]`)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Events", got[0].Title)
	})

	t.Run("accepts fenced JSON", func(t *testing.T) {
		t.Parallel()

		got, err := gemini.ParseChunks("```json\n[{\"title\":\"A\",\"description\":\"\",\"content\":\"a\"}]\n```")

		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("fails when nothing usable", func(t *testing.T) {
		t.Parallel()

		_, err := gemini.ParseChunks(`[]`)

		assert.Equal(t, docingest.ECHUNK, docingest.ErrorCode(err))
	})
}

func TestEmbedder_Embed(t *testing.T) {
	t.Parallel()

	t.Run("returns vector", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, embedResponse([]float32{0.1, 0.2, 0.3}))

		got, err := gemini.NewEmbedder(client).Embed(context.Background(), "hello", docingest.EmbedOptions{Dimensions: 3})

		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, got)
	})

	t.Run("rejects zero vector", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, embedResponse([]float32{0, 0, 0}))

		_, err := gemini.NewEmbedder(client).Embed(context.Background(), "hello", docingest.EmbedOptions{})

		assert.Equal(t, docingest.EEMBED, docingest.ErrorCode(err))
	})

	t.Run("wraps API errors", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":429,"message":"quota"}}`, http.StatusTooManyRequests)
		})

		_, err := gemini.NewEmbedder(client).Embed(context.Background(), "hello", docingest.EmbedOptions{})

		assert.Equal(t, docingest.EEMBED, docingest.ErrorCode(err))
	})

	t.Run("requires text", func(t *testing.T) {
		t.Parallel()

		_, err := gemini.NewEmbedder(nil).Embed(context.Background(), "", docingest.EmbedOptions{})

		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
	})
}

func TestBuildEmbedConfig(t *testing.T) {
	t.Parallel()

	config := gemini.BuildEmbedConfig(docingest.EmbedOptions{})
	require.NotNil(t, config.OutputDimensionality)
	assert.Equal(t, int32(gemini.DefaultDimensions), *config.OutputDimensionality)

	config = gemini.BuildEmbedConfig(docingest.EmbedOptions{Dimensions: 1536})
	assert.Equal(t, int32(1536), *config.OutputDimensionality)
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
