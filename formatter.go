package docingest

import (
	"fmt"
	"strings"
)

// FormatSnippets formats snippets for display.
// Uses title if available, falls back to source URL.
// Snippets are separated by blank lines.
func FormatSnippets(snippets []*Snippet) string {
	if len(snippets) == 0 {
		return ""
	}

	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, snippetHeader(s)+"\n"+s.Content)
	}

	return strings.Join(parts, "\n\n")
}

// FormatSearchResults formats similarity matches with their scores and
// source URLs, most similar first as returned by the store.
func FormatSearchResults(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for i, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s (score %.3f)\n", i+1, snippetHeader(r.Snippet), r.Score)
		b.WriteString("Source: " + r.Snippet.SourceURL + "\n")
		if r.Snippet.Description != "" {
			b.WriteString(r.Snippet.Description + "\n")
		}
		b.WriteString(r.Snippet.Content)
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n\n")
}

func snippetHeader(s *Snippet) string {
	header := s.Title
	if header == "" {
		header = s.SourceURL
	}
	return "## Snippet: " + header
}
