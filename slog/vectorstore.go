package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docingest"
)

var _ docingest.VectorStore = (*LoggingVectorStore)(nil)

// LoggingVectorStore wraps a VectorStore with logging.
type LoggingVectorStore struct {
	next   docingest.VectorStore
	logger *slog.Logger
}

// NewLoggingVectorStore creates a new LoggingVectorStore.
func NewLoggingVectorStore(next docingest.VectorStore, logger *slog.Logger) *LoggingVectorStore {
	return &LoggingVectorStore{next: next, logger: logger}
}

// Initialize delegates to the wrapped store.
func (s *LoggingVectorStore) Initialize(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("vector store initialize", "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.Initialize(ctx)
}

// AddDocuments delegates to the wrapped store and logs each rejected snippet.
func (s *LoggingVectorStore) AddDocuments(ctx context.Context, snippets []*docingest.Snippet) (result *docingest.AddResult, err error) {
	defer func(begin time.Time) {
		var added, failed int
		if result != nil {
			added, failed = len(result.Added), len(result.Failed)
			for _, f := range result.Failed {
				s.logger.Warn("snippet rejected", "id", f.SnippetID, "err", f.Err)
			}
		}
		s.logger.Debug("add documents",
			"snippets", len(snippets),
			"added", added,
			"failed", failed,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.AddDocuments(ctx, snippets)
}

// SearchDocuments delegates to the wrapped store.
func (s *LoggingVectorStore) SearchDocuments(ctx context.Context, embedding []float32, filters docingest.Filters, limit int) (results []docingest.SearchResult, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("search documents",
			"filters", len(filters),
			"limit", limit,
			"results", len(results),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SearchDocuments(ctx, embedding, filters, limit)
}

// GetDocumentsByFilters delegates to the wrapped store.
func (s *LoggingVectorStore) GetDocumentsByFilters(ctx context.Context, filters docingest.Filters, limit, page int) (snippets []*docingest.Snippet, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("get documents",
			"filters", len(filters),
			"limit", limit,
			"page", page,
			"results", len(snippets),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.GetDocumentsByFilters(ctx, filters, limit, page)
}

// DeleteDocumentsByFilters delegates to the wrapped store.
func (s *LoggingVectorStore) DeleteDocumentsByFilters(ctx context.Context, filters docingest.Filters) (n int, err error) {
	defer func(begin time.Time) {
		s.logger.Info("delete documents",
			"filters", len(filters),
			"deleted", n,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DeleteDocumentsByFilters(ctx, filters)
}

// Close delegates to the wrapped store.
func (s *LoggingVectorStore) Close() error {
	return s.next.Close()
}
