package docingest

import "context"

// LLMOptions are the generation settings passed to cleaning and chunking.
type LLMOptions struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// ChunkOptions configures the chunking stage.
type ChunkOptions struct {
	LLMOptions
	ExtractConcepts bool `json:"extractConcepts"`
}

// EmbedOptions configures the embedding stage.
type EmbedOptions struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// SnippetDraft is a chunk produced by a Chunker, before identifiers,
// metadata and embeddings are attached.
type SnippetDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Concepts    []string `json:"concepts,omitempty"`
}

// Cleaner removes navigation residue and noise from converted Markdown.
type Cleaner interface {
	// Clean returns cleaned Markdown. Failures carry ECLEANUP.
	Clean(ctx context.Context, markdown string, tech TechnologyMetadata, opts LLMOptions) (string, error)
}

// Chunker splits cleaned Markdown into titled snippets.
type Chunker interface {
	// Chunk returns one draft per snippet. Failures carry ECHUNK.
	Chunk(ctx context.Context, markdown string, tech TechnologyMetadata, opts ChunkOptions) ([]SnippetDraft, error)
}

// Embedder computes a fixed-length vector for text.
type Embedder interface {
	// Embed returns the embedding. Failures carry EEMBED; a failed
	// embedding is never replaced by a placeholder vector.
	Embed(ctx context.Context, text string, opts EmbedOptions) ([]float32, error)
}

// TokenCounter counts tokens in text for a specific model.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
