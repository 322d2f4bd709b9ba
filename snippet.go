package docingest

import (
	"context"
	"time"
)

// Category classifies what a snippet documents.
type Category string

// Snippet categories.
const (
	CategoryLanguage  Category = "language"
	CategoryFramework Category = "framework"
	CategoryLibrary   Category = "library"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryLanguage, CategoryFramework, CategoryLibrary:
		return true
	}
	return false
}

// TechnologyMetadata describes the technology a documentation site covers.
// It is passed to the LLM when cleaning and copied onto every snippet.
type TechnologyMetadata struct {
	Category         Category `json:"category"`
	Language         string   `json:"language,omitempty"`
	LanguageVersion  string   `json:"languageVersion,omitempty"`
	Framework        string   `json:"framework,omitempty"`
	FrameworkVersion string   `json:"frameworkVersion,omitempty"`
	Library          string   `json:"library,omitempty"`
	LibraryVersion   string   `json:"libraryVersion,omitempty"`
}

// Validate returns an error if the category is set but unknown.
func (m TechnologyMetadata) Validate() error {
	if m.Category != "" && !m.Category.Valid() {
		return Errorf(EINVALID, "unknown category %q", m.Category)
	}
	return nil
}

// Name returns the most specific technology name.
func (m TechnologyMetadata) Name() string {
	switch m.Category {
	case CategoryFramework:
		return m.Framework
	case CategoryLibrary:
		return m.Library
	}
	return m.Language
}

// Version returns the version matching Name.
func (m TechnologyMetadata) Version() string {
	switch m.Category {
	case CategoryFramework:
		return m.FrameworkVersion
	case CategoryLibrary:
		return m.LibraryVersion
	}
	return m.LanguageVersion
}

// Snippet is a titled, chunked, embedded unit of documentation.
type Snippet struct {
	ID string `json:"snippetId"`
	TechnologyMetadata
	SourceURL   string    `json:"sourceUrl"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Concepts    []string  `json:"concepts,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate returns an error if the snippet is missing fields required
// by every vector store.
func (s *Snippet) Validate() error {
	if s.ID == "" {
		return Errorf(EINVALID, "snippet ID required")
	}
	if !s.Category.Valid() {
		return Errorf(EINVALID, "snippet %s: invalid category %q", s.ID, s.Category)
	}
	if s.Title == "" {
		return Errorf(EINVALID, "snippet %s: title required", s.ID)
	}
	if s.Content == "" {
		return Errorf(EINVALID, "snippet %s: content required", s.ID)
	}
	if s.SourceURL == "" {
		return Errorf(EINVALID, "snippet %s: source URL required", s.ID)
	}
	return nil
}

// Filter keys accepted by VectorStore queries.
const (
	FieldSnippetID        = "snippet_id"
	FieldCategory         = "category"
	FieldLanguage         = "language"
	FieldLanguageVersion  = "language_version"
	FieldFramework        = "framework"
	FieldFrameworkVersion = "framework_version"
	FieldLibrary          = "library"
	FieldLibraryVersion   = "library_version"
	FieldTitle            = "title"
	FieldSourceURL        = "source_url"
)

// FilterFields lists the metadata fields that may appear in Filters.
var FilterFields = []string{
	FieldSnippetID, FieldCategory,
	FieldLanguage, FieldLanguageVersion,
	FieldFramework, FieldFrameworkVersion,
	FieldLibrary, FieldLibraryVersion,
	FieldTitle, FieldSourceURL,
}

// Filters is a flat equality filter over snippet metadata. Entries are ANDed.
type Filters map[string]string

// Validate returns EINVALID if a key is not a known metadata field.
func (f Filters) Validate() error {
	for k := range f {
		known := false
		for _, field := range FilterFields {
			if k == field {
				known = true
				break
			}
		}
		if !known {
			return Errorf(EINVALID, "unknown filter field %q", k)
		}
	}
	return nil
}

// Field returns the value of a metadata field on the snippet.
func (s *Snippet) Field(name string) string {
	switch name {
	case FieldSnippetID:
		return s.ID
	case FieldCategory:
		return string(s.Category)
	case FieldLanguage:
		return s.Language
	case FieldLanguageVersion:
		return s.LanguageVersion
	case FieldFramework:
		return s.Framework
	case FieldFrameworkVersion:
		return s.FrameworkVersion
	case FieldLibrary:
		return s.Library
	case FieldLibraryVersion:
		return s.LibraryVersion
	case FieldTitle:
		return s.Title
	case FieldSourceURL:
		return s.SourceURL
	}
	return ""
}

// Match reports whether the snippet satisfies every filter entry.
func (f Filters) Match(s *Snippet) bool {
	for k, v := range f {
		if s.Field(k) != v {
			return false
		}
	}
	return true
}

// VectorStore stores embedded snippets and answers similarity queries.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// Initialize establishes the backend connection and collection.
	// It is idempotent. Returns EINVALID when misconfigured and
	// EUNAVAILABLE when the backend cannot be reached.
	Initialize(ctx context.Context) error

	// AddDocuments validates and upserts snippets. Invalid or rejected
	// snippets are reported in AddResult.Failed; the rest are stored.
	AddDocuments(ctx context.Context, snippets []*Snippet) (*AddResult, error)

	// SearchDocuments returns the snippets closest to the query embedding,
	// most similar first, with scores normalized to [0,1].
	SearchDocuments(ctx context.Context, embedding []float32, filters Filters, limit int) ([]SearchResult, error)

	// GetDocumentsByFilters browses snippets without a query vector.
	// Page is 1-based.
	GetDocumentsByFilters(ctx context.Context, filters Filters, limit, page int) ([]*Snippet, error)

	// DeleteDocumentsByFilters removes matching snippets and returns the count.
	DeleteDocumentsByFilters(ctx context.Context, filters Filters) (int, error)

	// Close releases the backend connection.
	Close() error
}

// AddResult reports which snippets an AddDocuments call stored.
type AddResult struct {
	Added  []string     `json:"added"`
	Failed []AddFailure `json:"failed,omitempty"`
}

// AddFailure describes a snippet that was not stored.
type AddFailure struct {
	SnippetID string `json:"snippetId"`
	Err       error  `json:"-"`
}

// SearchResult represents a similarity match.
type SearchResult struct {
	Snippet *Snippet `json:"snippet"`
	Score   float64  `json:"score"`
}

// NormalizeCosine maps a cosine similarity in [-1,1] to a score in [0,1].
func NormalizeCosine(cos float64) float64 {
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
