package mock

import (
	"context"

	"github.com/fwojciec/docingest"
)

var _ docingest.VectorStore = (*VectorStore)(nil)

// VectorStore is a mock implementation of docingest.VectorStore.
type VectorStore struct {
	InitializeFn               func(ctx context.Context) error
	AddDocumentsFn             func(ctx context.Context, snippets []*docingest.Snippet) (*docingest.AddResult, error)
	SearchDocumentsFn          func(ctx context.Context, embedding []float32, filters docingest.Filters, limit int) ([]docingest.SearchResult, error)
	GetDocumentsByFiltersFn    func(ctx context.Context, filters docingest.Filters, limit, page int) ([]*docingest.Snippet, error)
	DeleteDocumentsByFiltersFn func(ctx context.Context, filters docingest.Filters) (int, error)
	CloseFn                    func() error
}

func (s *VectorStore) Initialize(ctx context.Context) error {
	return s.InitializeFn(ctx)
}

func (s *VectorStore) AddDocuments(ctx context.Context, snippets []*docingest.Snippet) (*docingest.AddResult, error) {
	return s.AddDocumentsFn(ctx, snippets)
}

func (s *VectorStore) SearchDocuments(ctx context.Context, embedding []float32, filters docingest.Filters, limit int) ([]docingest.SearchResult, error) {
	return s.SearchDocumentsFn(ctx, embedding, filters, limit)
}

func (s *VectorStore) GetDocumentsByFilters(ctx context.Context, filters docingest.Filters, limit, page int) ([]*docingest.Snippet, error) {
	return s.GetDocumentsByFiltersFn(ctx, filters, limit, page)
}

func (s *VectorStore) DeleteDocumentsByFilters(ctx context.Context, filters docingest.Filters) (int, error) {
	return s.DeleteDocumentsByFiltersFn(ctx, filters)
}

func (s *VectorStore) Close() error {
	return s.CloseFn()
}
