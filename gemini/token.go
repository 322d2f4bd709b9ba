package gemini

import (
	"context"
	"strings"
	"sync"

	"github.com/fwojciec/docingest"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ docingest.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts snippet tokens locally with the Gemini tokenizer,
// without calling the API. Safe for concurrent use by pipeline workers.
type TokenCounter struct {
	model string

	mu  sync.Mutex
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter loads the tokenizer for model. Returns EINVALID if the
// model has no local tokenizer.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = DefaultModel
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "no local tokenizer for %s: %s", model, err)
	}
	return &TokenCounter{model: model, tok: tok}, nil
}

// Model returns the model whose vocabulary is used for counting.
func (tc *TokenCounter) Model() string {
	return tc.model
}

// CountTokens returns the token count of text. Blank text counts as zero.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	tc.mu.Lock()
	result, err := tc.tok.CountTokens(contents, nil)
	tc.mu.Unlock()
	if err != nil {
		return 0, docingest.Errorf(docingest.EINTERNAL, "count tokens: %s", err)
	}
	return int(result.TotalTokens), nil
}
