package main_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/fwojciec/docingest"
	main "github.com/fwojciec/docingest/cmd/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/fwojciec/docingest/progress"
	"github.com/fwojciec/docingest/sqlite"
	"github.com/stretchr/testify/require"
)

// testEnv wires commands to an in-memory database.
type testEnv struct {
	deps   *main.Dependencies
	db     *sqlite.DB
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{db: db, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	env.deps = &main.Dependencies{
		Ctx:      context.Background(),
		Stdout:   env.stdout,
		Stderr:   env.stderr,
		DB:       db,
		Sessions: sqlite.NewSessionService(db),
		URLs:     sqlite.NewCrawlURLService(db),
		Proxies:  sqlite.NewProxyService(db),
		Tracker:  progress.NewTracker(),
		OpenVectorStore: func(docingest.VectorStoreConfig) (docingest.VectorStore, error) {
			return sqlite.NewVectorStore(db), nil
		},
	}
	return env
}

// addSession creates the serde session used across command tests.
func (e *testEnv) addSession(t *testing.T) *docingest.CrawlSession {
	t.Helper()
	session := &docingest.CrawlSession{
		Name:       "serde",
		PrefixPath: "https://serde.rs/",
		Technology: docingest.TechnologyMetadata{
			Category:       docingest.CategoryLibrary,
			Language:       "rust",
			Library:        "serde",
			LibraryVersion: "1.0",
		},
		MaxConcurrency: 2,
		VectorStore:    docingest.VectorStoreConfig{Backend: docingest.BackendLocal},
	}
	require.NoError(t, e.deps.Sessions.CreateSession(context.Background(), session))
	return session
}

// markCrawled registers url and stores its Markdown as if it had been
// crawled.
func (e *testEnv) markCrawled(t *testing.T, session *docingest.CrawlSession, url, markdown string) {
	t.Helper()
	ctx := context.Background()
	frontier := crawl.NewFrontier(session, e.deps.URLs)
	require.NoError(t, frontier.Open(ctx))
	_, _, err := frontier.Submit(ctx, url)
	require.NoError(t, err)
	require.NoError(t, frontier.MarkCrawled(ctx, url, "<html><body>"+markdown+"</body></html>", markdown))
}
