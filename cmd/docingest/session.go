package main

import (
	"fmt"

	"github.com/fwojciec/docingest"
)

// findSession looks a session up by name. The error has already been
// reported on stderr when it is returned.
func findSession(deps *Dependencies, name string) (*docingest.CrawlSession, error) {
	sessions, err := deps.Sessions.FindSessions(deps.Ctx, docingest.SessionFilter{Name: &name, Limit: 1})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return nil, err
	}
	if len(sessions) == 0 {
		fmt.Fprintf(deps.Stderr, "error: session %q not found. Use 'docingest session list' to see available sessions.\n", name)
		return nil, docingest.Errorf(docingest.ENOTFOUND, "session %q not found", name)
	}
	return sessions[0], nil
}

// Run executes the session add command.
func (c *SessionAddCmd) Run(deps *Dependencies) error {
	session := &docingest.CrawlSession{
		Name:           c.Name,
		PrefixPath:     c.Prefix,
		AntiPaths:      c.AntiPath,
		AntiKeywords:   c.AntiKeyword,
		MaxConcurrency: c.Concurrency,
		Technology: docingest.TechnologyMetadata{
			Category:         docingest.Category(c.Category),
			Language:         c.Language,
			LanguageVersion:  c.LanguageVersion,
			Framework:        c.Framework,
			FrameworkVersion: c.FrameworkVersion,
			Library:          c.Library,
			LibraryVersion:   c.LibraryVersion,
		},
		VectorStore: c.vectorStoreConfig(),
	}

	if err := deps.Sessions.CreateSession(deps.Ctx, session); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Added session %q (%s)\n", session.Name, session.ID)
	return nil
}

func (c *SessionAddCmd) vectorStoreConfig() docingest.VectorStoreConfig {
	if docingest.VectorBackend(c.Backend) == docingest.BackendPgvector {
		return docingest.VectorStoreConfig{
			Backend: docingest.BackendPgvector,
			Pgvector: &docingest.PgvectorConfig{
				DSN:        c.PgDSN,
				Table:      c.PgTable,
				Dimensions: c.Dimensions,
			},
		}
	}
	cfg := docingest.VectorStoreConfig{Backend: docingest.BackendLocal}
	if c.VectorPath != "" {
		cfg.Local = &docingest.LocalConfig{Path: c.VectorPath}
	}
	return cfg
}

// Run executes the session list command.
func (c *SessionListCmd) Run(deps *Dependencies) error {
	sessions, err := deps.Sessions.FindSessions(deps.Ctx, docingest.SessionFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(deps.Stdout, "No sessions found. Use 'docingest session add' to create one.")
		return nil
	}

	for _, s := range sessions {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %s  %s\n", s.ID, s.Name, s.PrefixPath, technologyLabel(s.Technology), s.VectorStore.Backend)
	}
	return nil
}

func technologyLabel(tech docingest.TechnologyMetadata) string {
	name := tech.Name()
	if name == "" {
		return string(tech.Category)
	}
	if v := tech.Version(); v != "" {
		return name + "@" + v
	}
	return name
}

// Run executes the session filter command.
func (c *SessionFilterCmd) Run(deps *Dependencies) error {
	session, err := findSession(deps, c.Name)
	if err != nil {
		return err
	}

	var upd docingest.SessionUpdate
	switch {
	case c.Clear:
		empty := []string{}
		upd.AntiPaths, upd.AntiKeywords = &empty, &empty
	default:
		if len(c.AntiPath) > 0 {
			upd.AntiPaths = &c.AntiPath
		}
		if len(c.AntiKeyword) > 0 {
			upd.AntiKeywords = &c.AntiKeyword
		}
	}
	if c.Concurrency >= 0 {
		upd.MaxConcurrency = &c.Concurrency
	}

	updated, err := deps.Sessions.UpdateSession(deps.Ctx, session.ID, upd)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Updated session %q: anti-paths %v, anti-keywords %v, concurrency %d\n",
		updated.Name, updated.AntiPaths, updated.AntiKeywords, updated.MaxConcurrency)
	fmt.Fprintln(deps.Stdout, "Filters apply to URLs discovered from now on.")
	return nil
}

// Run executes the session delete command.
func (c *SessionDeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return docingest.Errorf(docingest.EINVALID, "use --force to confirm deletion")
	}

	session, err := findSession(deps, c.Name)
	if err != nil {
		return err
	}

	if err := deps.Sessions.DeleteSession(deps.Ctx, session.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted session %q\n", session.Name)
	return nil
}
