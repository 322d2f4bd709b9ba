package main_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/docingest"
	main "github.com/fwojciec/docingest/cmd/docingest"
	"github.com/fwojciec/docingest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockDeps(sessions docingest.SessionService) (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:      context.Background(),
		Stdout:   stdout,
		Stderr:   stderr,
		Sessions: sessions,
	}, stdout, stderr
}

func sessionNamed(name string) *mock.SessionService {
	return &mock.SessionService{
		FindSessionsFn: func(_ context.Context, f docingest.SessionFilter) ([]*docingest.CrawlSession, error) {
			if f.Name == nil || *f.Name != name {
				return nil, nil
			}
			return []*docingest.CrawlSession{{ID: "sess-1", Name: name, PrefixPath: "https://serde.rs/"}}, nil
		},
	}
}

func TestSessionAddCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("creates local session", func(t *testing.T) {
		t.Parallel()

		var created *docingest.CrawlSession
		deps, stdout, stderr := mockDeps(&mock.SessionService{
			CreateSessionFn: func(_ context.Context, s *docingest.CrawlSession) error {
				s.ID = "sess-1"
				created = s
				return nil
			},
		})

		cmd := &main.SessionAddCmd{
			Name:        "serde",
			Prefix:      "https://serde.rs/",
			AntiPath:    []string{"/blog"},
			AntiKeyword: []string{"changelog"},
			Concurrency: 4,
			Category:    "library",
			Library:     "serde",
			Backend:     "local",
		}
		require.NoError(t, cmd.Run(deps))

		assert.Contains(t, stdout.String(), `Added session "serde" (sess-1)`)
		assert.Empty(t, stderr.String())
		require.NotNil(t, created)
		assert.Equal(t, []string{"/blog"}, created.AntiPaths)
		assert.Equal(t, []string{"changelog"}, created.AntiKeywords)
		assert.Equal(t, 4, created.MaxConcurrency)
		assert.Equal(t, docingest.CategoryLibrary, created.Technology.Category)
		assert.Equal(t, docingest.BackendLocal, created.VectorStore.Backend)
		assert.Nil(t, created.VectorStore.Local)
	})

	t.Run("builds pgvector config", func(t *testing.T) {
		t.Parallel()

		var created *docingest.CrawlSession
		deps, _, _ := mockDeps(&mock.SessionService{
			CreateSessionFn: func(_ context.Context, s *docingest.CrawlSession) error {
				created = s
				return nil
			},
		})

		cmd := &main.SessionAddCmd{
			Name:       "tauri",
			Prefix:     "https://v2.tauri.app/",
			Category:   "framework",
			Framework:  "tauri",
			Backend:    "pgvector",
			PgDSN:      "postgres://localhost/docs",
			PgTable:    "tauri_snippets",
			Dimensions: 1536,
		}
		require.NoError(t, cmd.Run(deps))

		require.NotNil(t, created.VectorStore.Pgvector)
		assert.Equal(t, docingest.BackendPgvector, created.VectorStore.Backend)
		assert.Equal(t, "postgres://localhost/docs", created.VectorStore.Pgvector.DSN)
		assert.Equal(t, "tauri_snippets", created.VectorStore.Pgvector.Table)
		assert.Equal(t, 1536, created.VectorStore.Pgvector.Dimensions)
	})

	t.Run("reports create failure", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := mockDeps(&mock.SessionService{
			CreateSessionFn: func(context.Context, *docingest.CrawlSession) error {
				return docingest.Errorf(docingest.ECONFLICT, "session %q already exists", "serde")
			},
		})

		err := (&main.SessionAddCmd{Name: "serde", Prefix: "https://serde.rs/", Category: "library", Backend: "local"}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, docingest.ECONFLICT, docingest.ErrorCode(err))
		assert.Contains(t, stderr.String(), "already exists")
	})
}

func TestSessionListCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("lists sessions", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := mockDeps(&mock.SessionService{
			FindSessionsFn: func(context.Context, docingest.SessionFilter) ([]*docingest.CrawlSession, error) {
				return []*docingest.CrawlSession{
					{
						ID: "sess-1", Name: "serde", PrefixPath: "https://serde.rs/",
						Technology:  docingest.TechnologyMetadata{Category: docingest.CategoryLibrary, Library: "serde", LibraryVersion: "1.0"},
						VectorStore: docingest.VectorStoreConfig{Backend: docingest.BackendLocal},
					},
					{
						ID: "sess-2", Name: "tauri", PrefixPath: "https://v2.tauri.app/",
						Technology:  docingest.TechnologyMetadata{Category: docingest.CategoryFramework, Framework: "tauri"},
						VectorStore: docingest.VectorStoreConfig{Backend: docingest.BackendPgvector},
					},
				}, nil
			},
		})

		require.NoError(t, (&main.SessionListCmd{}).Run(deps))

		out := stdout.String()
		assert.Contains(t, out, "sess-1  serde  https://serde.rs/  serde@1.0  local")
		assert.Contains(t, out, "sess-2  tauri  https://v2.tauri.app/  tauri  pgvector")
	})

	t.Run("shows hint when empty", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := mockDeps(&mock.SessionService{
			FindSessionsFn: func(context.Context, docingest.SessionFilter) ([]*docingest.CrawlSession, error) {
				return nil, nil
			},
		})

		require.NoError(t, (&main.SessionListCmd{}).Run(deps))
		assert.Contains(t, stdout.String(), "docingest session add")
	})

	t.Run("reports errors", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := mockDeps(&mock.SessionService{
			FindSessionsFn: func(context.Context, docingest.SessionFilter) ([]*docingest.CrawlSession, error) {
				return nil, errors.New("disk I/O error")
			},
		})

		require.Error(t, (&main.SessionListCmd{}).Run(deps))
		assert.Contains(t, stderr.String(), "error:")
	})
}

func TestSessionFilterCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("replaces filters and concurrency", func(t *testing.T) {
		t.Parallel()

		svc := sessionNamed("serde")
		var got docingest.SessionUpdate
		svc.UpdateSessionFn = func(_ context.Context, id string, upd docingest.SessionUpdate) (*docingest.CrawlSession, error) {
			assert.Equal(t, "sess-1", id)
			got = upd
			return &docingest.CrawlSession{Name: "serde", AntiPaths: *upd.AntiPaths, MaxConcurrency: *upd.MaxConcurrency}, nil
		}
		deps, stdout, _ := mockDeps(svc)

		cmd := &main.SessionFilterCmd{Name: "serde", AntiPath: []string{"/blog"}, Concurrency: 0}
		require.NoError(t, cmd.Run(deps))

		require.NotNil(t, got.AntiPaths)
		assert.Equal(t, []string{"/blog"}, *got.AntiPaths)
		assert.Nil(t, got.AntiKeywords)
		require.NotNil(t, got.MaxConcurrency)
		assert.Equal(t, 0, *got.MaxConcurrency)
		assert.Contains(t, stdout.String(), "discovered from now on")
	})

	t.Run("clear empties both lists", func(t *testing.T) {
		t.Parallel()

		svc := sessionNamed("serde")
		var got docingest.SessionUpdate
		svc.UpdateSessionFn = func(_ context.Context, _ string, upd docingest.SessionUpdate) (*docingest.CrawlSession, error) {
			got = upd
			return &docingest.CrawlSession{Name: "serde"}, nil
		}
		deps, _, _ := mockDeps(svc)

		require.NoError(t, (&main.SessionFilterCmd{Name: "serde", Clear: true, Concurrency: -1}).Run(deps))

		require.NotNil(t, got.AntiPaths)
		require.NotNil(t, got.AntiKeywords)
		assert.Empty(t, *got.AntiPaths)
		assert.Empty(t, *got.AntiKeywords)
		assert.Nil(t, got.MaxConcurrency)
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := mockDeps(sessionNamed("serde"))

		err := (&main.SessionFilterCmd{Name: "tokio", Concurrency: -1}).Run(deps)

		assert.Equal(t, docingest.ENOTFOUND, docingest.ErrorCode(err))
		assert.Contains(t, stderr.String(), `session "tokio" not found`)
	})
}

func TestSessionDeleteCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("requires force", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := mockDeps(sessionNamed("serde"))

		err := (&main.SessionDeleteCmd{Name: "serde"}).Run(deps)

		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
		assert.Contains(t, stderr.String(), "--force")
	})

	t.Run("deletes by name", func(t *testing.T) {
		t.Parallel()

		svc := sessionNamed("serde")
		var deleted string
		svc.DeleteSessionFn = func(_ context.Context, id string) error {
			deleted = id
			return nil
		}
		deps, stdout, _ := mockDeps(svc)

		require.NoError(t, (&main.SessionDeleteCmd{Name: "serde", Force: true}).Run(deps))

		assert.Equal(t, "sess-1", deleted)
		assert.Contains(t, stdout.String(), `Deleted session "serde"`)
	})
}
