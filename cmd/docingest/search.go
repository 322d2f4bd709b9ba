package main

import (
	"fmt"

	"github.com/fwojciec/docingest"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	session, err := findSession(deps, c.Name)
	if err != nil {
		return err
	}

	filters := sessionFilters(session, c.Filter)
	if err := filters.Validate(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	embedding, err := deps.Embedder.Embed(deps.Ctx, c.Query, embedOptions(session, c.EmbeddingModel))
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	store, err := openStore(deps, session)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.SearchDocuments(deps.Ctx, embedding, filters, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No matching snippets.")
		return nil
	}
	fmt.Fprintln(deps.Stdout, docingest.FormatSearchResults(results))
	return nil
}

// Run executes the browse command.
func (c *BrowseCmd) Run(deps *Dependencies) error {
	session, err := findSession(deps, c.Name)
	if err != nil {
		return err
	}

	filters := sessionFilters(session, c.Filter)
	if err := filters.Validate(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	store, err := openStore(deps, session)
	if err != nil {
		return err
	}
	defer store.Close()

	snippets, err := store.GetDocumentsByFilters(deps.Ctx, filters, c.Limit, c.Page)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	if len(snippets) == 0 {
		fmt.Fprintln(deps.Stdout, "No snippets found.")
		return nil
	}
	if c.Full {
		fmt.Fprintln(deps.Stdout, docingest.FormatSnippets(snippets))
		return nil
	}
	for _, s := range snippets {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s\n", s.ID, s.Title, s.SourceURL)
	}
	return nil
}

func openStore(deps *Dependencies, session *docingest.CrawlSession) (docingest.VectorStore, error) {
	store, err := deps.OpenVectorStore(session.VectorStore)
	if err == nil {
		err = store.Initialize(deps.Ctx)
		if err != nil {
			_ = store.Close()
		}
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return nil, err
	}
	return store, nil
}

// sessionFilters scopes user filters to the session's technology. Keys
// given by the user win.
func sessionFilters(session *docingest.CrawlSession, user map[string]string) docingest.Filters {
	filters := docingest.Filters{}
	tech := session.Technology
	if tech.Category != "" {
		filters[docingest.FieldCategory] = string(tech.Category)
	}
	switch tech.Category {
	case docingest.CategoryFramework:
		filters[docingest.FieldFramework] = tech.Framework
	case docingest.CategoryLibrary:
		filters[docingest.FieldLibrary] = tech.Library
	case docingest.CategoryLanguage:
		filters[docingest.FieldLanguage] = tech.Language
	}
	for k, v := range filters {
		if v == "" {
			delete(filters, k)
		}
	}
	for k, v := range user {
		filters[k] = v
	}
	return filters
}
