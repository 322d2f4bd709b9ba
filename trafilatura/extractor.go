// Package trafilatura implements docingest.Extractor.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/docingest"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var _ docingest.Extractor = (*Extractor)(nil)

// Extractor strips navigation, footers and other boilerplate from a
// documentation page, keeping the main content as HTML so that code
// blocks and tables survive conversion.
type Extractor struct {
	// IncludeImages keeps <img> elements in the extracted content.
	IncludeImages bool
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the page title and main content. Returns ECONVERT if
// the input is empty or no main content can be found.
func (e *Extractor) Extract(rawHTML string) (*docingest.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docingest.Errorf(docingest.ECONVERT, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		IncludeLinks:    true,
		IncludeImages:   e.IncludeImages,
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return nil, docingest.Errorf(docingest.ECONVERT, "extract main content: %s", err)
	}
	if result == nil || result.ContentNode == nil {
		return nil, docingest.Errorf(docingest.ECONVERT, "no main content found")
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return nil, docingest.Errorf(docingest.ECONVERT, "render content: %s", err)
	}

	return &docingest.ExtractResult{
		Title:       strings.TrimSpace(result.Metadata.Title),
		ContentHTML: buf.String(),
	}, nil
}
