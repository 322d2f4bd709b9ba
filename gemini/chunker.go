package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/docingest"
	"google.golang.org/genai"
)

var _ docingest.Chunker = (*Chunker)(nil)

const chunkInstruction = `You split cleaned documentation Markdown into self-contained snippets.
Each snippet covers one topic, has a short descriptive title and a one-sentence description, and keeps its code blocks intact.
Do not summarize or rewrite the content; copy it verbatim into the snippet it belongs to.`

// Chunker splits Markdown into snippets with Gemini structured output.
type Chunker struct {
	client *genai.Client
}

// NewChunker creates a new Chunker.
func NewChunker(client *genai.Client) *Chunker {
	return &Chunker{client: client}
}

// Chunk returns one draft per snippet. Failures carry ECHUNK.
func (c *Chunker) Chunk(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.ChunkOptions) ([]docingest.SnippetDraft, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, docingest.Errorf(docingest.EINVALID, "markdown required")
	}

	text, err := generate(ctx, c.client, opts.Model, BuildChunkPrompt(markdown, tech, opts.ExtractConcepts), BuildChunkConfig(opts))
	if err != nil {
		if docingest.ErrorCode(err) == docingest.EUNAVAILABLE {
			return nil, err
		}
		return nil, docingest.Errorf(docingest.ECHUNK, "chunk: %s", err)
	}
	return ParseChunks(text)
}

// BuildChunkConfig returns the GenerateContentConfig for chunking calls,
// requesting a JSON array of snippets.
func BuildChunkConfig(opts docingest.ChunkOptions) *genai.GenerateContentConfig {
	config := baseConfig(chunkInstruction, opts.LLMOptions)
	config.ResponseMIMEType = "application/json"
	config.ResponseSchema = chunkSchema(opts.ExtractConcepts)
	return config
}

func chunkSchema(concepts bool) *genai.Schema {
	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"content":     {Type: genai.TypeString},
		},
		Required: []string{"title", "description", "content"},
	}
	if concepts {
		item.Properties["concepts"] = &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		}
		item.Required = append(item.Required, "concepts")
	}
	return &genai.Schema{Type: genai.TypeArray, Items: item}
}

// BuildChunkPrompt builds the user prompt for chunking.
func BuildChunkPrompt(markdown string, tech docingest.TechnologyMetadata, concepts bool) string {
	var sb strings.Builder
	sb.WriteString("<technology>\n")
	sb.WriteString(describeTechnology(tech))
	sb.WriteString("\n</technology>\n\n")
	if concepts {
		sb.WriteString("List the key API names and concepts each snippet covers in its concepts field.\n\n")
	}
	fmt.Fprintf(&sb, "<markdown>\n%s\n</markdown>", markdown)
	return sb.String()
}

// ParseChunks decodes a chunking response. Snippets without content are
// dropped; a response with no usable snippet is an ECHUNK failure.
func ParseChunks(text string) ([]docingest.SnippetDraft, error) {
	var raw []docingest.SnippetDraft
	if err := json.Unmarshal([]byte(StripFence(text)), &raw); err != nil {
		return nil, docingest.Errorf(docingest.ECHUNK, "chunk: invalid JSON response: %s", err)
	}

	drafts := make([]docingest.SnippetDraft, 0, len(raw))
	for _, d := range raw {
		d.Title = strings.TrimSpace(d.Title)
		d.Description = strings.TrimSpace(d.Description)
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		if d.Title == "" {
			d.Title = firstLine(d.Content)
		}
		drafts = append(drafts, d)
	}
	if len(drafts) == 0 {
		return nil, docingest.Errorf(docingest.ECHUNK, "chunk: response contained no snippets")
	}
	return drafts, nil
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(strings.TrimLeft(line, "# "))
}
