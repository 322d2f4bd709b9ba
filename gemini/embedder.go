package gemini

import (
	"context"

	"github.com/fwojciec/docingest"
	"google.golang.org/genai"
)

var _ docingest.Embedder = (*Embedder)(nil)

// Embedder computes embeddings with the Gemini embedding API.
type Embedder struct {
	client *genai.Client
}

// NewEmbedder creates a new Embedder.
func NewEmbedder(client *genai.Client) *Embedder {
	return &Embedder{client: client}
}

// Embed returns the embedding of text. Empty or all-zero vectors are
// EEMBED failures.
func (e *Embedder) Embed(ctx context.Context, text string, opts docingest.EmbedOptions) ([]float32, error) {
	if text == "" {
		return nil, docingest.Errorf(docingest.EINVALID, "text required")
	}
	if e.client == nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "gemini client not configured")
	}

	model := opts.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	result, err := e.client.Models.EmbedContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		BuildEmbedConfig(opts),
	)
	if err != nil {
		return nil, docingest.Errorf(docingest.EEMBED, "embed: %s", err)
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, docingest.Errorf(docingest.EEMBED, "embed: no embedding returned")
	}

	values := result.Embeddings[0].Values
	if isZero(values) {
		return nil, docingest.Errorf(docingest.EEMBED, "embed: empty vector returned")
	}
	return values, nil
}

// BuildEmbedConfig returns the EmbedContentConfig for embedding calls.
func BuildEmbedConfig(opts docingest.EmbedOptions) *genai.EmbedContentConfig {
	dims := int32(opts.Dimensions)
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	}
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
