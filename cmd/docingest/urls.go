package main

import (
	"fmt"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
)

// Run executes the urls command.
func (c *URLsCmd) Run(deps *Dependencies) error {
	session, err := findSession(deps, c.Name)
	if err != nil {
		return err
	}

	counts, err := deps.URLs.CountCrawlURLs(deps.Ctx, session.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "%s: %s\n", session.Name, crawl.FormatStatusCounts(counts))

	if len(c.Status) == 0 {
		return nil
	}

	statuses := make([]docingest.URLStatus, 0, len(c.Status))
	for _, s := range c.Status {
		status, err := parseStatus(s)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
			return err
		}
		statuses = append(statuses, status)
	}

	urls, err := deps.URLs.FindCrawlURLs(deps.Ctx, docingest.CrawlURLFilter{
		SessionID: &session.ID,
		Statuses:  statuses,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}
	for _, u := range urls {
		if u.Error != "" {
			fmt.Fprintf(deps.Stdout, "%-9s  %s  %s\n", u.Status, u.URL, u.Error)
			continue
		}
		fmt.Fprintf(deps.Stdout, "%-9s  %s\n", u.Status, u.URL)
	}
	return nil
}

func parseStatus(s string) (docingest.URLStatus, error) {
	for _, status := range docingest.URLStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", docingest.Errorf(docingest.EINVALID, "unknown status %q", s)
}
