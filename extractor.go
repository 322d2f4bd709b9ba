package docingest

// ExtractResult holds the main content of an HTML page.
type ExtractResult struct {
	Title string

	// ContentHTML is the page body with navigation, footers and other
	// boilerplate removed.
	ContentHTML string
}

// Extractor pulls the main content out of a page before conversion.
type Extractor interface {
	Extract(html string) (*ExtractResult, error)
}
