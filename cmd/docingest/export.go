package main

import (
	"fmt"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/fs"
)

// Run executes the export command.
func (c *ExportCmd) Run(deps *Dependencies) error {
	session, err := findSession(deps, c.Name)
	if err != nil {
		return err
	}

	pages, err := deps.URLs.FindCrawlURLs(deps.Ctx, docingest.CrawlURLFilter{
		SessionID:   &session.ID,
		Statuses:    []docingest.URLStatus{docingest.StatusProcessed},
		WithContent: true,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}
	if len(pages) == 0 {
		fmt.Fprintln(deps.Stdout, "No processed pages to export. Run 'docingest process' first.")
		return nil
	}

	exp := fs.NewExporter(c.Out, session.Name, session.Technology)
	for _, page := range pages {
		if err := exp.Save(deps.Ctx, page); err != nil {
			_ = exp.Abort()
			fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
			return err
		}
	}
	if err := exp.Commit(); err != nil {
		_ = exp.Abort()
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Exported %d pages to %s\n", len(pages), exp.Dir())
	return nil
}
