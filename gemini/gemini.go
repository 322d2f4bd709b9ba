// Package gemini implements the LLM collaborators (cleaning, chunking,
// embedding and token counting) on Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docingest"
	"google.golang.org/genai"
)

// Default models and settings.
const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultDimensions     = 768
	DefaultTemperature    = float32(0.2)
)

// generate sends a single-turn prompt and returns the response text.
func generate(ctx context.Context, client *genai.Client, model, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if client == nil {
		return "", docingest.Errorf(docingest.EUNAVAILABLE, "gemini client not configured")
	}
	if model == "" {
		model = DefaultModel
	}

	result, err := client.Models.GenerateContent(ctx, model,
		[]*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		}},
		config,
	)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("gemini returned nil result")
	}
	return result.Text(), nil
}

// baseConfig applies shared generation options.
func baseConfig(system string, opts docingest.LLMOptions) *genai.GenerateContentConfig {
	temp := opts.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
		Temperature: &temp,
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	return config
}

// describeTechnology renders technology metadata for prompts.
func describeTechnology(tech docingest.TechnologyMetadata) string {
	var parts []string
	add := func(label, name, version string) {
		if name == "" {
			return
		}
		if version != "" {
			name += " " + version
		}
		parts = append(parts, label+": "+name)
	}
	add("Language", tech.Language, tech.LanguageVersion)
	add("Framework", tech.Framework, tech.FrameworkVersion)
	add("Library", tech.Library, tech.LibraryVersion)
	if len(parts) == 0 {
		return "unspecified technology"
	}
	return strings.Join(parts, "\n")
}
