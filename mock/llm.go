package mock

import (
	"context"

	"github.com/fwojciec/docingest"
)

var _ docingest.Cleaner = (*Cleaner)(nil)

// Cleaner is a mock implementation of docingest.Cleaner.
type Cleaner struct {
	CleanFn func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error)
}

func (c *Cleaner) Clean(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
	return c.CleanFn(ctx, markdown, tech, opts)
}

var _ docingest.Chunker = (*Chunker)(nil)

// Chunker is a mock implementation of docingest.Chunker.
type Chunker struct {
	ChunkFn func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.ChunkOptions) ([]docingest.SnippetDraft, error)
}

func (c *Chunker) Chunk(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.ChunkOptions) ([]docingest.SnippetDraft, error) {
	return c.ChunkFn(ctx, markdown, tech, opts)
}

var _ docingest.Embedder = (*Embedder)(nil)

// Embedder is a mock implementation of docingest.Embedder.
type Embedder struct {
	EmbedFn func(ctx context.Context, text string, opts docingest.EmbedOptions) ([]float32, error)
}

func (e *Embedder) Embed(ctx context.Context, text string, opts docingest.EmbedOptions) ([]float32, error) {
	return e.EmbedFn(ctx, text, opts)
}

var _ docingest.TokenCounter = (*TokenCounter)(nil)

// TokenCounter is a mock implementation of docingest.TokenCounter.
type TokenCounter struct {
	CountTokensFn func(ctx context.Context, text string) (int, error)
}

func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return tc.CountTokensFn(ctx, text)
}
