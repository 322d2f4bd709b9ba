// Package readability implements docingest.Extractor with Mozilla's
// readability algorithm. It scores paragraphs instead of relying on the
// heuristics trafilatura applies, and handles article-style pages better.
package readability

import (
	"strings"

	"github.com/fwojciec/docingest"
	"github.com/go-shiori/go-readability"
)

var _ docingest.Extractor = (*Extractor)(nil)

// Extractor extracts the main content of a page with go-readability.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the page title and main content. Returns ECONVERT if
// the input is empty or readability finds no content.
func (e *Extractor) Extract(rawHTML string) (*docingest.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docingest.Errorf(docingest.ECONVERT, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, docingest.Errorf(docingest.ECONVERT, "extract main content: %s", err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, docingest.Errorf(docingest.ECONVERT, "no main content found")
	}

	return &docingest.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: article.Content,
	}, nil
}
