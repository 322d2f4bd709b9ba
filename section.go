package docingest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Default limits for HeadingChunker.
const (
	DefaultSectionLevel    = 3
	DefaultSectionMaxChars = 6000
	maxDescriptionChars    = 200
	maxLocalConcepts       = 10
)

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	inlineCodeRe = regexp.MustCompile("`([^`\n]{2,60})`")
)

var _ Chunker = (*HeadingChunker)(nil)

// HeadingChunker splits Markdown at headings without calling an LLM.
// Headings inside fenced code blocks are ignored. Sections longer than
// MaxChars are split further at paragraph boundaries.
type HeadingChunker struct {
	// MaxLevel is the deepest heading that starts a new snippet.
	MaxLevel int
	MaxChars int
}

// Chunk implements Chunker.
func (c *HeadingChunker) Chunk(ctx context.Context, markdown string, _ TechnologyMetadata, opts ChunkOptions) ([]SnippetDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, Errorf(ECHUNK, "empty markdown")
	}

	maxLevel := c.MaxLevel
	if maxLevel <= 0 {
		maxLevel = DefaultSectionLevel
	}
	maxChars := c.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultSectionMaxChars
	}

	var drafts []SnippetDraft
	for _, sec := range splitSections(markdown, maxLevel) {
		parts := splitParagraphs(sec.body, maxChars)
		for i, part := range parts {
			title := sec.title
			if len(parts) > 1 {
				title = fmt.Sprintf("%s (part %d)", sec.title, i+1)
			}
			draft := SnippetDraft{
				Title:       title,
				Description: describe(part),
				Content:     part,
			}
			if opts.ExtractConcepts {
				draft.Concepts = inlineConcepts(part)
			}
			drafts = append(drafts, draft)
		}
	}

	if len(drafts) == 0 {
		return nil, Errorf(ECHUNK, "no content sections found")
	}
	return drafts, nil
}

type section struct {
	title string
	body  string
}

// splitSections cuts markdown at headings up to maxLevel. Sections without
// any text besides their heading are dropped.
func splitSections(markdown string, maxLevel int) []section {
	var sections []section
	current := section{title: "Overview"}
	var body strings.Builder
	hasText := false
	inFence := false

	flush := func() {
		if hasText {
			current.body = strings.TrimSpace(body.String())
			sections = append(sections, current)
		}
		body.Reset()
		hasText = false
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence {
			if m := headingRe.FindStringSubmatch(line); m != nil && len(m[1]) <= maxLevel {
				flush()
				current = section{title: strings.TrimSpace(m[2])}
				body.WriteString(line)
				body.WriteString("\n")
				continue
			}
		}
		if trimmed != "" {
			hasText = true
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

// splitParagraphs breaks text into parts of at most maxChars, cutting only
// at blank lines outside code fences. A single oversized paragraph is kept whole.
func splitParagraphs(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var paragraphs []string
	var para strings.Builder
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if trimmed == "" && !inFence {
			if para.Len() > 0 {
				paragraphs = append(paragraphs, strings.TrimSpace(para.String()))
				para.Reset()
			}
			continue
		}
		para.WriteString(line)
		para.WriteString("\n")
	}
	if para.Len() > 0 {
		paragraphs = append(paragraphs, strings.TrimSpace(para.String()))
	}

	var parts []string
	var part strings.Builder
	for _, p := range paragraphs {
		if part.Len() > 0 && part.Len()+len(p)+2 > maxChars {
			parts = append(parts, part.String())
			part.Reset()
		}
		if part.Len() > 0 {
			part.WriteString("\n\n")
		}
		part.WriteString(p)
	}
	if part.Len() > 0 {
		parts = append(parts, part.String())
	}
	return parts
}

// describe returns the first prose line of a section, truncated.
func describe(text string) string {
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if len(trimmed) > maxDescriptionChars {
			return trimmed[:maxDescriptionChars] + "..."
		}
		return trimmed
	}
	return ""
}

// inlineConcepts collects distinct inline code spans as concept names.
func inlineConcepts(text string) []string {
	seen := make(map[string]bool)
	var concepts []string
	for _, m := range inlineCodeRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		concepts = append(concepts, name)
		if len(concepts) == maxLocalConcepts {
			break
		}
	}
	return concepts
}
