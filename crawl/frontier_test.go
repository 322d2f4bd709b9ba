package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/fwojciec/docingest/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupFrontier returns an opened frontier over an in-memory database.
func setupFrontier(t *testing.T, session *docingest.CrawlSession) (*crawl.Frontier, *sqlite.CrawlURLService) {
	t.Helper()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	if session.Name == "" {
		session.Name = "test"
	}
	if session.PrefixPath == "" {
		session.PrefixPath = "https://example.com/docs"
	}
	session.VectorStore.Backend = docingest.BackendLocal
	require.NoError(t, sqlite.NewSessionService(db).CreateSession(context.Background(), session))

	urls := sqlite.NewCrawlURLService(db)
	f := crawl.NewFrontier(session, urls)
	require.NoError(t, f.Open(context.Background()))
	return f, urls
}

func TestFrontier_Submit(t *testing.T) {
	t.Parallel()

	t.Run("inserts new URL as pending", func(t *testing.T) {
		t.Parallel()

		f, urls := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()

		accepted, isNew, err := f.Submit(ctx, "https://example.com/docs/a")

		require.NoError(t, err)
		assert.True(t, accepted)
		assert.True(t, isNew)
		assert.Equal(t, 1, f.Stats().Counts[docingest.StatusPending])

		batch, err := urls.FindCrawlURLs(ctx, docingest.CrawlURLFilter{})
		require.NoError(t, err)
		require.Len(t, batch, 1)
		assert.Equal(t, docingest.StatusPending, batch[0].Status)
	})

	t.Run("reports existing URL as not new", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		_, _, err := f.Submit(ctx, "https://example.com/docs/a")
		require.NoError(t, err)

		accepted, isNew, err := f.Submit(ctx, "https://example.com/docs/a#section")

		require.NoError(t, err)
		assert.True(t, accepted)
		assert.False(t, isNew)
		assert.Equal(t, 1, f.Stats().Duplicates)
	})

	t.Run("rejects URL outside filter", func(t *testing.T) {
		t.Parallel()

		f, urls := setupFrontier(t, &docingest.CrawlSession{
			PrefixPath:   "https://v2.tauri.app",
			AntiKeywords: []string{"blog"},
		})
		ctx := context.Background()

		accepted, isNew, err := f.Submit(ctx, "https://v2.tauri.app/blog/post-1")

		require.NoError(t, err)
		assert.False(t, accepted)
		assert.False(t, isNew)
		assert.Equal(t, 1, f.Stats().Rejected)

		accepted, isNew, err = f.Submit(ctx, "https://v2.tauri.app/start/")
		require.NoError(t, err)
		assert.True(t, accepted)
		assert.True(t, isNew)

		all, err := urls.FindCrawlURLs(ctx, docingest.CrawlURLFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("sees URLs persisted before open", func(t *testing.T) {
		t.Parallel()

		session := &docingest.CrawlSession{}
		f, urls := setupFrontier(t, session)
		ctx := context.Background()
		_, _, err := f.Submit(ctx, "https://example.com/docs/a")
		require.NoError(t, err)

		reopened := crawl.NewFrontier(session, urls)
		require.NoError(t, reopened.Open(ctx))
		_, isNew, err := reopened.Submit(ctx, "https://example.com/docs/a")

		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, 1, reopened.Stats().Counts[docingest.StatusPending])
	})

	t.Run("filter changes only affect later submissions", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		_, _, err := f.Submit(ctx, "https://example.com/docs/blog/a")
		require.NoError(t, err)

		f.SetFilter(docingest.URLFilter{PrefixPath: "https://example.com/docs", AntiKeywords: []string{"blog"}})

		accepted, _, err := f.Submit(ctx, "https://example.com/docs/blog/b")
		require.NoError(t, err)
		assert.False(t, accepted)

		batch, err := f.PendingBatch(ctx, nil, docingest.OpCrawl)
		require.NoError(t, err)
		require.Len(t, batch, 1)
		assert.Equal(t, "https://example.com/docs/blog/a", batch[0].URL)
	})

	t.Run("concurrent submissions insert each URL once", func(t *testing.T) {
		t.Parallel()

		f, urls := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()

		var wg sync.WaitGroup
		var mu sync.Mutex
		newCount := 0
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 20 {
					_, isNew, err := f.Submit(ctx, fmt.Sprintf("https://example.com/docs/%d", i))
					assert.NoError(t, err)
					if isNew {
						mu.Lock()
						newCount++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 20, newCount)
		all, err := urls.FindCrawlURLs(ctx, docingest.CrawlURLFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 20)
	})

	t.Run("requires open", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier(&docingest.CrawlSession{ID: "s", PrefixPath: "https://example.com"}, sqlite.NewCrawlURLService(nil))

		_, _, err := f.Submit(context.Background(), "https://example.com/a")

		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
	})
}

func TestFrontier_Transitions(t *testing.T) {
	t.Parallel()

	t.Run("follows the forward lifecycle", func(t *testing.T) {
		t.Parallel()

		session := &docingest.CrawlSession{}
		f, urls := setupFrontier(t, session)
		ctx := context.Background()
		url := "https://example.com/docs/a"
		_, _, err := f.Submit(ctx, url)
		require.NoError(t, err)

		require.NoError(t, f.MarkCrawled(ctx, url, "<h1>A</h1>", "# A"))
		require.NoError(t, f.MarkProcessed(ctx, url, "# A cleaned", 3))

		stats := f.Stats()
		assert.Equal(t, 0, stats.Counts[docingest.StatusPending])
		assert.Equal(t, 0, stats.Counts[docingest.StatusCrawled])
		assert.Equal(t, 1, stats.Counts[docingest.StatusProcessed])

		row, err := urls.FindCrawlURL(ctx, session.ID, url)
		require.NoError(t, err)
		assert.Equal(t, docingest.StatusProcessed, row.Status)
		assert.Equal(t, "<h1>A</h1>", row.HTML)
		assert.Equal(t, "# A", row.Markdown)
		assert.Equal(t, "# A cleaned", row.CleanedMarkdown)
		assert.Equal(t, 3, row.SnippetCount)
	})

	t.Run("records errors on pending URLs", func(t *testing.T) {
		t.Parallel()

		session := &docingest.CrawlSession{}
		f, urls := setupFrontier(t, session)
		ctx := context.Background()
		url := "https://example.com/docs/a"
		_, _, err := f.Submit(ctx, url)
		require.NoError(t, err)

		require.NoError(t, f.MarkError(ctx, url, errors.New("connection reset")))

		row, err := urls.FindCrawlURL(ctx, session.ID, url)
		require.NoError(t, err)
		assert.Equal(t, docingest.StatusError, row.Status)
		assert.Equal(t, "connection reset", row.Error)
		assert.Equal(t, 1, f.Stats().Counts[docingest.StatusError])
	})

	t.Run("error after processed keeps processed status", func(t *testing.T) {
		t.Parallel()

		session := &docingest.CrawlSession{}
		f, urls := setupFrontier(t, session)
		ctx := context.Background()
		url := "https://example.com/docs/a"
		_, _, err := f.Submit(ctx, url)
		require.NoError(t, err)
		require.NoError(t, f.MarkCrawled(ctx, url, "<p>a</p>", "a"))
		require.NoError(t, f.MarkProcessed(ctx, url, "a", 1))

		require.NoError(t, f.MarkError(ctx, url, errors.New("reprocess failed")))

		row, err := urls.FindCrawlURL(ctx, session.ID, url)
		require.NoError(t, err)
		assert.Equal(t, docingest.StatusProcessed, row.Status)
		assert.Equal(t, "reprocess failed", row.Error)
		assert.Equal(t, 1, f.Stats().Counts[docingest.StatusProcessed])
		assert.Equal(t, 0, f.Stats().Counts[docingest.StatusError])
	})

	t.Run("rejects backward transition", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		url := "https://example.com/docs/a"
		_, _, err := f.Submit(ctx, url)
		require.NoError(t, err)

		err = f.MarkProcessed(ctx, url, "a", 1)

		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
		assert.Equal(t, 1, f.Stats().Counts[docingest.StatusPending])
	})

	t.Run("skips only pending URLs", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		_, _, err := f.Submit(ctx, "https://example.com/docs/a")
		require.NoError(t, err)
		_, _, err = f.Submit(ctx, "https://example.com/docs/b")
		require.NoError(t, err)
		require.NoError(t, f.MarkCrawled(ctx, "https://example.com/docs/b", "<p>b</p>", "b"))

		require.NoError(t, f.MarkSkipped(ctx, "https://example.com/docs/a"))
		err = f.MarkSkipped(ctx, "https://example.com/docs/b")

		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
		assert.Equal(t, 1, f.Stats().Counts[docingest.StatusSkipped])
	})

	t.Run("returns not found for unknown URL", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})

		err := f.MarkCrawled(context.Background(), "https://example.com/docs/missing", "", "")

		assert.Equal(t, docingest.ENOTFOUND, docingest.ErrorCode(err))
	})
}

func TestFrontier_PendingBatch(t *testing.T) {
	t.Parallel()

	t.Run("claims pending URLs for crawl", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		for _, u := range []string{"a", "b", "c"} {
			_, _, err := f.Submit(ctx, "https://example.com/docs/"+u)
			require.NoError(t, err)
		}
		require.NoError(t, f.MarkCrawled(ctx, "https://example.com/docs/c", "<p>c</p>", "c"))

		batch, err := f.PendingBatch(ctx, nil, docingest.OpCrawl)

		require.NoError(t, err)
		require.Len(t, batch, 2)
		assert.Equal(t, "https://example.com/docs/a", batch[0].URL)
		assert.Equal(t, "https://example.com/docs/b", batch[1].URL)
		assert.Equal(t, 2, f.Stats().InFlight)
	})

	t.Run("does not hand out claimed URLs twice", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		_, _, err := f.Submit(ctx, "https://example.com/docs/a")
		require.NoError(t, err)

		first, err := f.PendingBatch(ctx, nil, docingest.OpCrawl)
		require.NoError(t, err)
		second, err := f.PendingBatch(ctx, nil, docingest.OpCrawl)
		require.NoError(t, err)

		assert.Len(t, first, 1)
		assert.Empty(t, second)
	})

	t.Run("release makes URL claimable again", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		_, _, err := f.Submit(ctx, "https://example.com/docs/a")
		require.NoError(t, err)
		_, err = f.PendingBatch(ctx, nil, docingest.OpCrawl)
		require.NoError(t, err)

		f.Release("https://example.com/docs/a#top")
		batch, err := f.PendingBatch(ctx, nil, docingest.OpCrawl)

		require.NoError(t, err)
		assert.Len(t, batch, 1)
		assert.Equal(t, docingest.StatusPending, batch[0].Status)
	})

	t.Run("marking releases the claim", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		_, _, err := f.Submit(ctx, "https://example.com/docs/a")
		require.NoError(t, err)
		_, err = f.PendingBatch(ctx, nil, docingest.OpCrawl)
		require.NoError(t, err)

		require.NoError(t, f.MarkCrawled(ctx, "https://example.com/docs/a", "<p>a</p>", "a"))

		assert.Equal(t, 0, f.Stats().InFlight)
	})

	t.Run("process claims crawled and errored URLs with content", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		for _, u := range []string{"a", "b", "c", "d"} {
			_, _, err := f.Submit(ctx, "https://example.com/docs/"+u)
			require.NoError(t, err)
		}
		require.NoError(t, f.MarkCrawled(ctx, "https://example.com/docs/a", "<p>a</p>", "a"))
		require.NoError(t, f.MarkCrawled(ctx, "https://example.com/docs/b", "<p>b</p>", "b"))
		require.NoError(t, f.MarkError(ctx, "https://example.com/docs/b", errors.New("chunk failed")))
		require.NoError(t, f.MarkCrawled(ctx, "https://example.com/docs/c", "<p>c</p>", "c"))
		require.NoError(t, f.MarkProcessed(ctx, "https://example.com/docs/c", "c", 1))

		batch, err := f.PendingBatch(ctx, nil, docingest.OpProcess)

		require.NoError(t, err)
		require.Len(t, batch, 2)
		assert.Equal(t, "https://example.com/docs/a", batch[0].URL)
		assert.Equal(t, "<p>a</p>", batch[0].HTML)
		assert.Equal(t, "https://example.com/docs/b", batch[1].URL)
	})

	t.Run("reprocess includes processed URLs", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		_, _, err := f.Submit(ctx, "https://example.com/docs/a")
		require.NoError(t, err)
		require.NoError(t, f.MarkCrawled(ctx, "https://example.com/docs/a", "<p>a</p>", "a"))
		require.NoError(t, f.MarkProcessed(ctx, "https://example.com/docs/a", "a", 1))

		batch, err := f.PendingBatch(ctx, nil, docingest.OpReprocess)

		require.NoError(t, err)
		require.Len(t, batch, 1)
		assert.Equal(t, docingest.StatusProcessed, batch[0].Status)
	})

	t.Run("restricts to requested URLs", func(t *testing.T) {
		t.Parallel()

		f, _ := setupFrontier(t, &docingest.CrawlSession{})
		ctx := context.Background()
		for _, u := range []string{"a", "b"} {
			_, _, err := f.Submit(ctx, "https://example.com/docs/"+u)
			require.NoError(t, err)
		}

		batch, err := f.PendingBatch(ctx, []string{"https://example.com/docs/b#intro"}, docingest.OpCrawl)

		require.NoError(t, err)
		require.Len(t, batch, 1)
		assert.Equal(t, "https://example.com/docs/b", batch[0].URL)
	})
}
