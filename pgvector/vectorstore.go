// Package pgvector implements docingest.VectorStore on Postgres with the
// pgvector extension.
package pgvector

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Defaults for Config.
const (
	DefaultTable        = "snippets"
	DefaultDimensions   = 768
	DefaultSearchLimit  = 10
	DefaultConnLifetime = 30 * time.Minute
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var _ docingest.VectorStore = (*VectorStore)(nil)

// Config controls the connection and collection of a VectorStore.
type Config struct {
	DSN        string
	Table      string
	Dimensions int
	MaxConns   int32
}

// Pool is the subset of *pgxpool.Pool used by the store.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// VectorStore keeps snippets in a single table with a cosine HNSW index.
type VectorStore struct {
	config Config

	mu          sync.RWMutex // guards pool; queries hold the read lock
	pool        Pool
	initialized bool
}

// NewVectorStore returns a store that connects on Initialize.
func NewVectorStore(config Config) *VectorStore {
	return &VectorStore{config: withDefaults(config)}
}

// NewVectorStoreWithPool returns a store using an existing pool.
func NewVectorStoreWithPool(pool Pool, config Config) (*VectorStore, error) {
	if pool == nil {
		return nil, docingest.Errorf(docingest.EINVALID, "pool is required")
	}
	s := &VectorStore{config: withDefaults(config), pool: pool}
	return s, nil
}

func withDefaults(c Config) Config {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	return c
}

// Initialize connects if needed and creates the extension, table and
// indexes. Repeated calls only check connectivity.
func (s *VectorStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validTableName.MatchString(s.config.Table) {
		return docingest.Errorf(docingest.EINVALID, "invalid table name %q", s.config.Table)
	}

	if s.pool == nil {
		pool, err := connect(ctx, s.config)
		if err != nil {
			return err
		}
		s.pool = pool
	}

	if err := s.pool.Ping(ctx); err != nil {
		return docingest.Errorf(docingest.EUNAVAILABLE, "postgres unreachable: %v", err)
	}
	if s.initialized {
		return nil
	}

	for _, stmt := range schema(s.config) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return docingest.Errorf(docingest.EUNAVAILABLE, "create schema: %v", err)
		}
	}
	s.initialized = true
	return nil
}

// connect creates the vector extension on a single connection first, so
// that every pooled connection can register the vector type.
func connect(ctx context.Context, config Config) (*pgxpool.Pool, error) {
	if config.DSN == "" {
		return nil, docingest.Errorf(docingest.EINVALID, "postgres DSN is required")
	}
	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "parse postgres DSN: %v", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	poolConfig.MaxConnLifetime = DefaultConnLifetime

	conn, err := pgx.ConnectConfig(ctx, poolConfig.ConnConfig)
	if err != nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "connect postgres: %v", err)
	}
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	conn.Close(ctx)
	if err != nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "create vector extension: %v", err)
	}

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "connect postgres: %v", err)
	}
	return pool, nil
}

func schema(c Config) []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			snippet_id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			language_version TEXT NOT NULL DEFAULT '',
			framework TEXT NOT NULL DEFAULT '',
			framework_version TEXT NOT NULL DEFAULT '',
			library TEXT NOT NULL DEFAULT '',
			library_version TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			concepts TEXT[] NOT NULL DEFAULT '{}',
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, c.Table, c.Dimensions),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %[1]s_source_url_idx ON %[1]s (source_url)", c.Table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %[1]s_embedding_idx ON %[1]s USING hnsw (embedding vector_cosine_ops)", c.Table),
	}
}

// AddDocuments validates and upserts snippets by snippet_id. Snippets whose
// embedding does not match the configured dimensions are rejected.
func (s *VectorStore) AddDocuments(ctx context.Context, snippets []*docingest.Snippet) (*docingest.AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "vector store is not initialized")
	}

	result := &docingest.AddResult{Added: []string{}}
	for _, snippet := range snippets {
		if err := snippet.Validate(); err != nil {
			result.Failed = append(result.Failed, docingest.AddFailure{SnippetID: snippet.ID, Err: err})
			continue
		}

		var embedding any
		if len(snippet.Embedding) > 0 {
			if len(snippet.Embedding) != s.config.Dimensions {
				err := docingest.Errorf(docingest.EINVALID, "snippet %s: embedding has %d dimensions, want %d",
					snippet.ID, len(snippet.Embedding), s.config.Dimensions)
				result.Failed = append(result.Failed, docingest.AddFailure{SnippetID: snippet.ID, Err: err})
				continue
			}
			embedding = pgvector.NewVector(snippet.Embedding)
		}
		if snippet.CreatedAt.IsZero() {
			snippet.CreatedAt = time.Now().UTC()
		}
		concepts := snippet.Concepts
		if concepts == nil {
			concepts = []string{}
		}

		_, err := s.pool.Exec(ctx, `INSERT INTO `+s.config.Table+` (`+insertColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (snippet_id) DO UPDATE SET
				category = EXCLUDED.category,
				language = EXCLUDED.language,
				language_version = EXCLUDED.language_version,
				framework = EXCLUDED.framework,
				framework_version = EXCLUDED.framework_version,
				library = EXCLUDED.library,
				library_version = EXCLUDED.library_version,
				source_url = EXCLUDED.source_url,
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				content = EXCLUDED.content,
				concepts = EXCLUDED.concepts,
				embedding = EXCLUDED.embedding`,
			snippet.ID, string(snippet.Category),
			snippet.Language, snippet.LanguageVersion,
			snippet.Framework, snippet.FrameworkVersion,
			snippet.Library, snippet.LibraryVersion,
			snippet.SourceURL, snippet.Title, snippet.Description, snippet.Content,
			concepts, embedding, snippet.CreatedAt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Failed = append(result.Failed, docingest.AddFailure{SnippetID: snippet.ID, Err: err})
			continue
		}
		result.Added = append(result.Added, snippet.ID)
	}
	return result, nil
}

// SearchDocuments orders the filtered rows by cosine distance.
func (s *VectorStore) SearchDocuments(ctx context.Context, embedding []float32, filters docingest.Filters, limit int) ([]docingest.SearchResult, error) {
	if len(embedding) != s.config.Dimensions {
		return nil, docingest.Errorf(docingest.EINVALID, "query embedding has %d dimensions, want %d", len(embedding), s.config.Dimensions)
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "vector store is not initialized")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	args := []any{pgvector.NewVector(embedding)}
	var query strings.Builder
	query.WriteString("SELECT " + selectColumns + ", 1 - (embedding <=> $1) AS similarity FROM " + s.config.Table)
	query.WriteString(" WHERE embedding IS NOT NULL")
	appendFilters(&query, &args, filters)
	args = append(args, limit)
	fmt.Fprintf(&query, " ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []docingest.SearchResult{}
	for rows.Next() {
		var similarity float64
		snippet, err := scanSnippet(rows, &similarity)
		if err != nil {
			return nil, err
		}
		results = append(results, docingest.SearchResult{
			Snippet: snippet,
			Score:   docingest.NormalizeCosine(similarity),
		})
	}
	return results, rows.Err()
}

// GetDocumentsByFilters pages through snippets in creation order.
func (s *VectorStore) GetDocumentsByFilters(ctx context.Context, filters docingest.Filters, limit, page int) ([]*docingest.Snippet, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "vector store is not initialized")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if page < 1 {
		page = 1
	}

	var args []any
	var query strings.Builder
	query.WriteString("SELECT " + selectColumns + " FROM " + s.config.Table + " WHERE TRUE")
	appendFilters(&query, &args, filters)
	args = append(args, limit, (page-1)*limit)
	fmt.Fprintf(&query, " ORDER BY created_at ASC, snippet_id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snippets := []*docingest.Snippet{}
	for rows.Next() {
		snippet, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, snippet)
	}
	return snippets, rows.Err()
}

// DeleteDocumentsByFilters removes matching snippets. An empty filter is
// rejected.
func (s *VectorStore) DeleteDocumentsByFilters(ctx context.Context, filters docingest.Filters) (int, error) {
	if len(filters) == 0 {
		return 0, docingest.Errorf(docingest.EINVALID, "delete requires at least one filter")
	}
	if err := filters.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return 0, docingest.Errorf(docingest.EUNAVAILABLE, "vector store is not initialized")
	}

	var args []any
	var query strings.Builder
	query.WriteString("DELETE FROM " + s.config.Table + " WHERE TRUE")
	appendFilters(&query, &args, filters)

	tag, err := s.pool.Exec(ctx, query.String(), args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Close closes the pool.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
		s.initialized = false
	}
	return nil
}

const insertColumns = `snippet_id, category, language, language_version, framework, framework_version,
	library, library_version, source_url, title, description, content, concepts, embedding, created_at`

const selectColumns = `snippet_id, category, language, language_version, framework, framework_version,
	library, library_version, source_url, title, description, content, concepts, created_at`

// appendFilters adds one numbered equality clause per filter key in key
// order. Keys are validated against docingest.FilterFields, which are also
// the column names.
func appendFilters(query *strings.Builder, args *[]any, filters docingest.Filters) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		*args = append(*args, filters[k])
		fmt.Fprintf(query, " AND %s = $%d", k, len(*args))
	}
}

func scanSnippet(rows pgx.Rows, extra ...any) (*docingest.Snippet, error) {
	var sn docingest.Snippet
	var category string
	dest := []any{&sn.ID, &category, &sn.Language, &sn.LanguageVersion,
		&sn.Framework, &sn.FrameworkVersion, &sn.Library, &sn.LibraryVersion,
		&sn.SourceURL, &sn.Title, &sn.Description, &sn.Content,
		&sn.Concepts, &sn.CreatedAt}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	sn.Category = docingest.Category(category)
	if len(sn.Concepts) == 0 {
		sn.Concepts = nil
	}
	return &sn, nil
}
