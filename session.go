package docingest

import (
	"context"
	"time"
)

// MaxConcurrencyCeiling caps worker pools sized by "unlimited" concurrency.
const MaxConcurrencyCeiling = 256

// CrawlSession represents a documentation target: where to crawl, what to
// skip, and where the resulting snippets are stored.
type CrawlSession struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	PrefixPath   string             `json:"prefixPath"`
	AntiPaths    []string           `json:"antiPaths"`
	AntiKeywords []string           `json:"antiKeywords"`
	Technology   TechnologyMetadata `json:"technology"`

	// MaxConcurrency bounds crawl and processing workers. Zero means
	// "unlimited": the pool is sized to the batch.
	MaxConcurrency int `json:"maxConcurrency"`

	VectorStore VectorStoreConfig `json:"vectorStore"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate returns an error if the session contains invalid fields.
func (s *CrawlSession) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "session name required")
	}
	if s.PrefixPath == "" {
		return Errorf(EINVALID, "session prefix path required")
	}
	if s.MaxConcurrency < 0 {
		return Errorf(EINVALID, "max concurrency must not be negative")
	}
	if err := s.Technology.Validate(); err != nil {
		return err
	}
	return s.VectorStore.Validate()
}

// Filter returns the URL filter described by the session.
func (s *CrawlSession) Filter() URLFilter {
	return URLFilter{
		PrefixPath:   s.PrefixPath,
		AntiPaths:    append([]string(nil), s.AntiPaths...),
		AntiKeywords: append([]string(nil), s.AntiKeywords...),
	}
}

// ResolveConcurrency returns the worker count for a batch of n items.
// Zero (unlimited) sizes the pool to the batch. The result is at least 1
// and never exceeds MaxConcurrencyCeiling.
func ResolveConcurrency(maxConcurrency, n int) int {
	workers := maxConcurrency
	if workers <= 0 || workers > n {
		workers = n
	}
	if workers > MaxConcurrencyCeiling {
		workers = MaxConcurrencyCeiling
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// SessionService represents a service for managing crawl sessions.
type SessionService interface {
	// CreateSession creates a new session.
	// Returns ECONFLICT if a session with the same name exists.
	CreateSession(ctx context.Context, session *CrawlSession) error

	// FindSessionByID retrieves a session by ID.
	// Returns ENOTFOUND if session does not exist.
	FindSessionByID(ctx context.Context, id string) (*CrawlSession, error)

	// FindSessions retrieves sessions matching the filter.
	FindSessions(ctx context.Context, filter SessionFilter) ([]*CrawlSession, error)

	// UpdateSession updates an existing session.
	// Returns ENOTFOUND if session does not exist.
	UpdateSession(ctx context.Context, id string, upd SessionUpdate) (*CrawlSession, error)

	// DeleteSession permanently removes a session and all associated URLs.
	// Returns ENOTFOUND if session does not exist.
	DeleteSession(ctx context.Context, id string) error
}

// SessionFilter represents a filter for FindSessions.
type SessionFilter struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// SessionUpdate represents fields that can be updated on a session.
// Filter edits only affect URLs discovered afterwards.
type SessionUpdate struct {
	AntiPaths      *[]string `json:"antiPaths"`
	AntiKeywords   *[]string `json:"antiKeywords"`
	MaxConcurrency *int      `json:"maxConcurrency"`
}

// VectorBackend discriminates VectorStoreConfig variants.
type VectorBackend string

// Supported vector store backends.
const (
	BackendLocal    VectorBackend = "local"
	BackendPgvector VectorBackend = "pgvector"
)

// VectorStoreConfig selects a vector store backend and carries its settings.
// It is resolved once per session into a VectorStore instance.
type VectorStoreConfig struct {
	Backend  VectorBackend   `json:"backend"`
	Local    *LocalConfig    `json:"local,omitempty"`
	Pgvector *PgvectorConfig `json:"pgvector,omitempty"`
}

// LocalConfig configures the embedded SQLite vector store.
// An empty Path shares the session database.
type LocalConfig struct {
	Path string `json:"path,omitempty"`
}

// PgvectorConfig configures the hosted Postgres vector store.
type PgvectorConfig struct {
	DSN        string `json:"dsn"`
	Table      string `json:"table,omitempty"`
	Dimensions int    `json:"dimensions"`
}

// Validate returns an error if the config is inconsistent with its backend.
func (c VectorStoreConfig) Validate() error {
	switch c.Backend {
	case BackendLocal:
		return nil
	case BackendPgvector:
		if c.Pgvector == nil || c.Pgvector.DSN == "" {
			return Errorf(EINVALID, "pgvector backend requires a DSN")
		}
		if c.Pgvector.Dimensions <= 0 {
			return Errorf(EINVALID, "pgvector backend requires positive dimensions")
		}
		return nil
	default:
		return Errorf(EINVALID, "unknown vector store backend %q", c.Backend)
	}
}
