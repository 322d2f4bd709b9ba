package sqlite

import (
	"context"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/docingest"
)

// DefaultSearchLimit is used when a query passes a non-positive limit.
const DefaultSearchLimit = 10

// Compile-time interface verification.
var _ docingest.VectorStore = (*VectorStore)(nil)

// VectorStore implements docingest.VectorStore on the snippets table.
// Similarity is computed in Go over the rows matching the metadata filter,
// which is adequate for a single documentation corpus.
type VectorStore struct {
	db    *DB
	owned bool

	mu sync.Mutex // serializes writes
}

// NewVectorStore returns a store sharing an already opened database.
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// NewVectorStoreAt returns a store with its own database file, opened by
// Initialize and closed by Close.
func NewVectorStoreAt(path string) *VectorStore {
	return &VectorStore{db: NewDB(path), owned: true}
}

// Initialize opens an owned database or checks that a shared one is open.
func (s *VectorStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.db == nil {
		if !s.owned {
			return docingest.Errorf(docingest.EUNAVAILABLE, "vector store database is not open")
		}
		if err := s.db.Open(); err != nil {
			return docingest.Errorf(docingest.EUNAVAILABLE, "open vector store %s: %v", s.db.Path(), err)
		}
	}
	if err := s.db.db.PingContext(ctx); err != nil {
		return docingest.Errorf(docingest.EUNAVAILABLE, "vector store unreachable: %v", err)
	}
	return nil
}

// AddDocuments validates and upserts snippets by snippet_id.
func (s *VectorStore) AddDocuments(ctx context.Context, snippets []*docingest.Snippet) (*docingest.AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &docingest.AddResult{Added: []string{}}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, snippet := range snippets {
		if err := snippet.Validate(); err != nil {
			result.Failed = append(result.Failed, docingest.AddFailure{SnippetID: snippet.ID, Err: err})
			continue
		}
		if snippet.CreatedAt.IsZero() {
			snippet.CreatedAt = time.Now().UTC()
		}

		var embedding any
		if len(snippet.Embedding) > 0 {
			embedding = encodeEmbedding(snippet.Embedding)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO snippets (`+snippetColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(snippet_id) DO UPDATE SET
				category = excluded.category,
				language = excluded.language,
				language_version = excluded.language_version,
				framework = excluded.framework,
				framework_version = excluded.framework_version,
				library = excluded.library,
				library_version = excluded.library_version,
				source_url = excluded.source_url,
				title = excluded.title,
				description = excluded.description,
				content = excluded.content,
				concepts = excluded.concepts,
				embedding = excluded.embedding
		`, snippet.ID, string(snippet.Category),
			snippet.Language, snippet.LanguageVersion,
			snippet.Framework, snippet.FrameworkVersion,
			snippet.Library, snippet.LibraryVersion,
			snippet.SourceURL, snippet.Title, snippet.Description, snippet.Content,
			strings.Join(snippet.Concepts, ","), embedding, formatTime(snippet.CreatedAt))
		if err != nil {
			result.Failed = append(result.Failed, docingest.AddFailure{SnippetID: snippet.ID, Err: err})
			continue
		}
		result.Added = append(result.Added, snippet.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// SearchDocuments ranks the filtered snippets by cosine similarity.
// Rows without an embedding or with a different dimension are skipped.
func (s *VectorStore) SearchDocuments(ctx context.Context, embedding []float32, filters docingest.Filters, limit int) ([]docingest.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, docingest.Errorf(docingest.EINVALID, "query embedding required")
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var query strings.Builder
	var args []any
	query.WriteString("SELECT " + snippetColumns + " FROM snippets WHERE embedding IS NOT NULL")
	appendFilters(&query, &args, filters)

	snippets, err := s.querySnippets(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}

	results := make([]docingest.SearchResult, 0, len(snippets))
	for _, snippet := range snippets {
		cos, ok := cosine(embedding, snippet.Embedding)
		if !ok {
			continue
		}
		results = append(results, docingest.SearchResult{
			Snippet: snippet,
			Score:   docingest.NormalizeCosine(cos),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetDocumentsByFilters pages through snippets in creation order.
func (s *VectorStore) GetDocumentsByFilters(ctx context.Context, filters docingest.Filters, limit, page int) ([]*docingest.Snippet, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if page < 1 {
		page = 1
	}

	var query strings.Builder
	var args []any
	query.WriteString("SELECT " + snippetColumns + " FROM snippets WHERE 1=1")
	appendFilters(&query, &args, filters)
	query.WriteString(" ORDER BY created_at ASC, snippet_id ASC")
	appendPagination(&query, &args, limit, (page-1)*limit)

	return s.querySnippets(ctx, query.String(), args...)
}

// DeleteDocumentsByFilters removes matching snippets. An empty filter is
// rejected so a missing argument cannot wipe the store.
func (s *VectorStore) DeleteDocumentsByFilters(ctx context.Context, filters docingest.Filters) (int, error) {
	if len(filters) == 0 {
		return 0, docingest.Errorf(docingest.EINVALID, "delete requires at least one filter")
	}
	if err := filters.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var query strings.Builder
	var args []any
	query.WriteString("DELETE FROM snippets WHERE 1=1")
	appendFilters(&query, &args, filters)

	result, err := s.db.ExecContext(ctx, query.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Close closes an owned database. A shared database is left open.
func (s *VectorStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

const snippetColumns = `snippet_id, category, language, language_version, framework, framework_version,
	library, library_version, source_url, title, description, content, concepts, embedding, created_at`

// appendFilters adds one equality clause per filter key. Keys are validated
// against docingest.FilterFields, which are also the column names.
func appendFilters(query *strings.Builder, args *[]any, filters docingest.Filters) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		query.WriteString(" AND " + k + " = ?")
		*args = append(*args, filters[k])
	}
}

func (s *VectorStore) querySnippets(ctx context.Context, query string, args ...any) ([]*docingest.Snippet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snippets := []*docingest.Snippet{}
	for rows.Next() {
		var sn docingest.Snippet
		var concepts, createdAt string
		var embedding []byte
		if err := rows.Scan(&sn.ID, &sn.Category, &sn.Language, &sn.LanguageVersion,
			&sn.Framework, &sn.FrameworkVersion, &sn.Library, &sn.LibraryVersion,
			&sn.SourceURL, &sn.Title, &sn.Description, &sn.Content,
			&concepts, &embedding, &createdAt); err != nil {
			return nil, err
		}
		if concepts != "" {
			sn.Concepts = strings.Split(concepts, ",")
		}
		if len(embedding) > 0 {
			if sn.Embedding, err = decodeEmbedding(embedding); err != nil {
				return nil, err
			}
		}
		if sn.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
			return nil, err
		}
		snippets = append(snippets, &sn)
	}
	return snippets, rows.Err()
}

// cosine returns the cosine similarity of a and b. ok is false when the
// vectors differ in length or either has zero magnitude.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
