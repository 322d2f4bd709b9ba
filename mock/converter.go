package mock

import "github.com/fwojciec/docingest"

var _ docingest.Converter = (*Converter)(nil)

// Converter is a mock implementation of docingest.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

var _ docingest.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of docingest.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*docingest.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*docingest.ExtractResult, error) {
	return e.ExtractFn(html)
}

var _ docingest.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of docingest.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html string, baseURL string) ([]docingest.DiscoveredLink, error)
}

func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]docingest.DiscoveredLink, error) {
	return e.ExtractLinksFn(html, baseURL)
}
