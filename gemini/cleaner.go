package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docingest"
	"google.golang.org/genai"
)

var _ docingest.Cleaner = (*Cleaner)(nil)

const cleanInstruction = `You clean Markdown converted from documentation web pages.
Remove navigation menus, breadcrumbs, cookie banners, version pickers, "edit this page" links, footers and other site chrome.
Keep every heading, paragraph, list, table and code block that documents the technology, unchanged.
Return only the cleaned Markdown with no commentary.`

// Cleaner removes page residue from Markdown with Gemini.
type Cleaner struct {
	client *genai.Client
}

// NewCleaner creates a new Cleaner.
func NewCleaner(client *genai.Client) *Cleaner {
	return &Cleaner{client: client}
}

// Clean returns the cleaned Markdown. Failures carry ECLEANUP.
func (c *Cleaner) Clean(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", docingest.Errorf(docingest.EINVALID, "markdown required")
	}

	text, err := generate(ctx, c.client, opts.Model, BuildCleanPrompt(markdown, tech), BuildCleanConfig(opts))
	if err != nil {
		if docingest.ErrorCode(err) == docingest.EUNAVAILABLE {
			return "", err
		}
		return "", docingest.Errorf(docingest.ECLEANUP, "clean: %s", err)
	}

	cleaned := StripFence(text)
	if cleaned == "" {
		return "", docingest.Errorf(docingest.ECLEANUP, "clean: empty response")
	}
	return cleaned, nil
}

// BuildCleanConfig returns the GenerateContentConfig for cleaning calls.
func BuildCleanConfig(opts docingest.LLMOptions) *genai.GenerateContentConfig {
	return baseConfig(cleanInstruction, opts)
}

// BuildCleanPrompt builds the user prompt for cleaning.
func BuildCleanPrompt(markdown string, tech docingest.TechnologyMetadata) string {
	var sb strings.Builder
	sb.WriteString("<technology>\n")
	sb.WriteString(describeTechnology(tech))
	sb.WriteString("\n</technology>\n\n")
	fmt.Fprintf(&sb, "<markdown>\n%s\n</markdown>", markdown)
	return sb.String()
}

// StripFence removes a Markdown code fence wrapping the whole response.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	body := strings.TrimSuffix(text, "```")
	if idx := strings.Index(body, "\n"); idx != -1 {
		body = body[idx+1:]
	} else {
		return text
	}
	return strings.TrimSpace(body)
}
