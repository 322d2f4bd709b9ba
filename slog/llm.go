package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docingest"
)

var (
	_ docingest.Cleaner  = (*LoggingCleaner)(nil)
	_ docingest.Chunker  = (*LoggingChunker)(nil)
	_ docingest.Embedder = (*LoggingEmbedder)(nil)
)

// LoggingCleaner wraps a Cleaner with logging.
type LoggingCleaner struct {
	next   docingest.Cleaner
	logger *slog.Logger
}

// NewLoggingCleaner creates a new LoggingCleaner.
func NewLoggingCleaner(next docingest.Cleaner, logger *slog.Logger) *LoggingCleaner {
	return &LoggingCleaner{next: next, logger: logger}
}

// Clean delegates to the wrapped cleaner and logs input and output sizes.
func (c *LoggingCleaner) Clean(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (cleaned string, err error) {
	defer func(begin time.Time) {
		c.logger.Debug("clean",
			"technology", tech.Name(),
			"model", opts.Model,
			"in", len(markdown),
			"out", len(cleaned),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Clean(ctx, markdown, tech, opts)
}

// LoggingChunker wraps a Chunker with logging.
type LoggingChunker struct {
	next   docingest.Chunker
	logger *slog.Logger
}

// NewLoggingChunker creates a new LoggingChunker.
func NewLoggingChunker(next docingest.Chunker, logger *slog.Logger) *LoggingChunker {
	return &LoggingChunker{next: next, logger: logger}
}

// Chunk delegates to the wrapped chunker and logs the snippet count.
func (c *LoggingChunker) Chunk(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.ChunkOptions) (drafts []docingest.SnippetDraft, err error) {
	defer func(begin time.Time) {
		c.logger.Debug("chunk",
			"technology", tech.Name(),
			"model", opts.Model,
			"in", len(markdown),
			"snippets", len(drafts),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Chunk(ctx, markdown, tech, opts)
}

// LoggingEmbedder wraps an Embedder with logging.
type LoggingEmbedder struct {
	next   docingest.Embedder
	logger *slog.Logger
}

// NewLoggingEmbedder creates a new LoggingEmbedder.
func NewLoggingEmbedder(next docingest.Embedder, logger *slog.Logger) *LoggingEmbedder {
	return &LoggingEmbedder{next: next, logger: logger}
}

// Embed delegates to the wrapped embedder and logs the vector dimensions.
func (e *LoggingEmbedder) Embed(ctx context.Context, text string, opts docingest.EmbedOptions) (vec []float32, err error) {
	defer func(begin time.Time) {
		e.logger.Debug("embed",
			"model", opts.Model,
			"chars", len(text),
			"dimensions", len(vec),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Embed(ctx, text, opts)
}
