package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/fwojciec/docingest/mock"
	"github.com/fwojciec/docingest/pipeline"
	"github.com/fwojciec/docingest/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTech = docingest.TechnologyMetadata{
	Category:         docingest.CategoryFramework,
	Language:         "rust",
	Framework:        "tauri",
	FrameworkVersion: "2",
}

func setupStore(t *testing.T) (*sqlite.DB, *sqlite.VectorStore) {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db, sqlite.NewVectorStore(db)
}

// newTestPipeline returns a pipeline whose LLM collaborators echo their
// input: cleaning trims whitespace and chunking yields one snippet.
func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	_, store := setupStore(t)
	return &pipeline.Pipeline{
		Converter: &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				return "# converted\n\n" + html, nil
			},
		},
		Cleaner: &mock.Cleaner{
			CleanFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
				return strings.TrimSpace(markdown), nil
			},
		},
		Chunker: &mock.Chunker{
			ChunkFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.ChunkOptions) ([]docingest.SnippetDraft, error) {
				return []docingest.SnippetDraft{{Title: "Intro", Description: "d", Content: markdown, Concepts: []string{"setup"}}}, nil
			},
		},
		Embedder: &mock.Embedder{
			EmbedFn: func(ctx context.Context, text string, opts docingest.EmbedOptions) ([]float32, error) {
				return []float32{1, 0, 0}, nil
			},
		},
		Store: store,
	}
}

// failingAdds wraps store so that AddDocuments runs add instead.
func failingAdds(store docingest.VectorStore, add func(context.Context, []*docingest.Snippet) (*docingest.AddResult, error)) *mock.VectorStore {
	return &mock.VectorStore{
		InitializeFn:               store.Initialize,
		AddDocumentsFn:             add,
		GetDocumentsByFiltersFn:    store.GetDocumentsByFilters,
		DeleteDocumentsByFiltersFn: store.DeleteDocumentsByFilters,
	}
}

func docs(urls ...string) []pipeline.Document {
	d := make([]pipeline.Document, len(urls))
	for i, u := range urls {
		d[i] = pipeline.Document{URL: u, Markdown: "# " + u}
	}
	return d
}

func TestPipeline_Process_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("requires cleaner", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.Cleaner = nil

		res, err := p.Process(context.Background(), docs("https://a"), pipeline.Options{Technology: testTech})

		assert.Nil(t, res)
		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
	})

	t.Run("requires store", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.Store = nil

		res, err := p.Process(context.Background(), docs("https://a"), pipeline.Options{Technology: testTech})

		assert.Nil(t, res)
		assert.Equal(t, docingest.EUNAVAILABLE, docingest.ErrorCode(err))
	})

	t.Run("requires technology category", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)

		res, err := p.Process(context.Background(), docs("https://a"), pipeline.Options{})

		assert.Nil(t, res)
		assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
	})

	t.Run("aborts before work when store is unreachable", func(t *testing.T) {
		t.Parallel()

		cleaned := false
		p := newTestPipeline(t)
		p.Cleaner = &mock.Cleaner{
			CleanFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
				cleaned = true
				return markdown, nil
			},
		}
		p.Store = &mock.VectorStore{
			InitializeFn: func(ctx context.Context) error {
				return docingest.Errorf(docingest.EUNAVAILABLE, "connection refused")
			},
		}

		res, err := p.Process(context.Background(), docs("https://a"), pipeline.Options{Technology: testTech})

		assert.Nil(t, res)
		assert.Equal(t, docingest.EUNAVAILABLE, docingest.ErrorCode(err))
		assert.False(t, cleaned)
	})

	t.Run("empty batch completes with no outcomes", func(t *testing.T) {
		t.Parallel()

		var completed []pipeline.Outcome
		called := false
		p := newTestPipeline(t)

		res, err := p.Process(context.Background(), nil, pipeline.Options{
			Technology: testTech,
			OnComplete: func(o []pipeline.Outcome) { called, completed = true, o },
		})

		require.NoError(t, err)
		assert.Empty(t, res.Outcomes)
		assert.True(t, called)
		assert.Empty(t, completed)
	})
}

func TestPipeline_Process(t *testing.T) {
	t.Parallel()

	t.Run("stores snippets retrievable by source URL", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		ctx := context.Background()
		url := "https://v2.tauri.app/start/"

		res, err := p.Process(ctx, docs(url), pipeline.Options{Technology: testTech})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Succeeded)
		assert.Equal(t, 1, res.Snippets)

		got, err := p.Store.GetDocumentsByFilters(ctx, docingest.Filters{docingest.FieldSourceURL: url}, 10, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, url, got[0].SourceURL)
		assert.Equal(t, "tauri", got[0].Framework)
		assert.Equal(t, docingest.CategoryFramework, got[0].Category)
		assert.Equal(t, []float32{1, 0, 0}, got[0].Embedding)
	})

	t.Run("isolates a failing document", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.Cleaner = &mock.Cleaner{
			CleanFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
				if strings.Contains(markdown, "/2") {
					return "", errors.New("rate limited")
				}
				return markdown, nil
			},
		}
		var completed []pipeline.Outcome

		res, err := p.Process(context.Background(), docs("https://x/1", "https://x/2", "https://x/3"), pipeline.Options{
			Technology: testTech,
			OnComplete: func(o []pipeline.Outcome) { completed = o },
		})

		require.NoError(t, err)
		require.Len(t, completed, 3)
		assert.Equal(t, res.Outcomes, completed)
		assert.Equal(t, docingest.StageComplete, completed[0].Stage)
		assert.Equal(t, docingest.StageError, completed[1].Stage)
		assert.Equal(t, docingest.StageCleaning, completed[1].FailedStage)
		assert.Equal(t, docingest.ECLEANUP, docingest.ErrorCode(completed[1].Err))
		assert.Equal(t, docingest.StageComplete, completed[2].Stage)
		assert.Equal(t, 2, res.Succeeded)
		assert.Equal(t, 1, res.Failed)
		for i, o := range completed {
			assert.Equal(t, i, o.Index)
		}
	})

	t.Run("fails batch when nothing succeeds", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.Chunker = &mock.Chunker{
			ChunkFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.ChunkOptions) ([]docingest.SnippetDraft, error) {
				return nil, errors.New("invalid JSON")
			},
		}

		res, err := p.Process(context.Background(), docs("https://x/1", "https://x/2"), pipeline.Options{Technology: testTech})

		assert.Equal(t, docingest.EINTERNAL, docingest.ErrorCode(err))
		require.NotNil(t, res)
		assert.Equal(t, 2, res.Failed)
		assert.Equal(t, docingest.ECHUNK, docingest.ErrorCode(res.Outcomes[0].Err))
	})

	t.Run("never exceeds max concurrency", func(t *testing.T) {
		t.Parallel()

		var active, peak atomic.Int32
		p := newTestPipeline(t)
		p.Cleaner = &mock.Cleaner{
			CleanFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
				n := active.Add(1)
				for {
					cur := peak.Load()
					if n <= cur || peak.CompareAndSwap(cur, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				return markdown, nil
			},
		}
		p.Embedder = &mock.Embedder{
			EmbedFn: func(ctx context.Context, text string, opts docingest.EmbedOptions) ([]float32, error) {
				time.Sleep(5 * time.Millisecond)
				active.Add(-1)
				return []float32{0, 1}, nil
			},
		}

		res, err := p.Process(context.Background(), docs("https://x/1", "https://x/2", "https://x/3", "https://x/4", "https://x/5"), pipeline.Options{
			Technology:     testTech,
			MaxConcurrency: 2,
		})

		require.NoError(t, err)
		assert.Equal(t, 5, res.Succeeded)
		assert.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("rejects all-zero embeddings", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.Embedder = &mock.Embedder{
			EmbedFn: func(ctx context.Context, text string, opts docingest.EmbedOptions) ([]float32, error) {
				return []float32{0, 0, 0}, nil
			},
		}

		res, err := p.Process(context.Background(), docs("https://x/1"), pipeline.Options{Technology: testTech})

		require.Error(t, err)
		assert.Equal(t, docingest.EEMBED, docingest.ErrorCode(res.Outcomes[0].Err))
		assert.Equal(t, docingest.StageEmbedding, res.Outcomes[0].FailedStage)

		stored, err := p.Store.GetDocumentsByFilters(context.Background(), nil, 10, 1)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("rejects embeddings of the wrong dimension", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)

		res, err := p.Process(context.Background(), docs("https://x/1"), pipeline.Options{
			Technology: testTech,
			Embed:      docingest.EmbedOptions{Dimensions: 768},
		})

		require.Error(t, err)
		assert.Equal(t, docingest.EEMBED, docingest.ErrorCode(res.Outcomes[0].Err))
	})

	t.Run("converts documents without markdown", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		var cleanedInput string
		p.Cleaner = &mock.Cleaner{
			CleanFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
				cleanedInput = markdown
				return markdown, nil
			},
		}

		_, err := p.Process(context.Background(), []pipeline.Document{{URL: "https://x/1", HTML: "<p>hi</p>"}}, pipeline.Options{Technology: testTech})

		require.NoError(t, err)
		assert.Equal(t, "# converted\n\n<p>hi</p>", cleanedInput)
	})

	t.Run("fails conversion without converter", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.Converter = nil

		res, err := p.Process(context.Background(), []pipeline.Document{{URL: "https://x/1", HTML: "<p>hi</p>"}}, pipeline.Options{Technology: testTech})

		require.Error(t, err)
		assert.Equal(t, docingest.ECONVERT, docingest.ErrorCode(res.Outcomes[0].Err))
		assert.Equal(t, docingest.StageConverting, res.Outcomes[0].FailedStage)
	})

	t.Run("drops concepts unless requested", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)

		res, err := p.Process(context.Background(), docs("https://x/1"), pipeline.Options{Technology: testTech})
		require.NoError(t, err)
		assert.Nil(t, res.Outcomes[0].Snippets[0].Concepts)

		res, err = p.Process(context.Background(), docs("https://x/1"), pipeline.Options{
			Technology: testTech,
			Chunk:      docingest.ChunkOptions{ExtractConcepts: true},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"setup"}, res.Outcomes[0].Snippets[0].Concepts)
	})

	t.Run("reprocessing replaces previous snippets", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		ctx := context.Background()
		opts := pipeline.Options{Technology: testTech}

		first, err := p.Process(ctx, docs("https://x/1"), opts)
		require.NoError(t, err)
		second, err := p.Process(ctx, docs("https://x/1"), opts)
		require.NoError(t, err)

		stored, err := p.Store.GetDocumentsByFilters(ctx, docingest.Filters{docingest.FieldSourceURL: "https://x/1"}, 10, 1)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, second.Outcomes[0].Snippets[0].ID, stored[0].ID)
		assert.NotEqual(t, first.Outcomes[0].Snippets[0].ID, stored[0].ID)
	})

	t.Run("failed reprocess keeps previous snippets", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		ctx := context.Background()
		opts := pipeline.Options{Technology: testTech}

		first, err := p.Process(ctx, docs("https://x/1"), opts)
		require.NoError(t, err)

		p.Store = failingAdds(p.Store, func(ctx context.Context, snippets []*docingest.Snippet) (*docingest.AddResult, error) {
			return nil, docingest.Errorf(docingest.EUNAVAILABLE, "connection reset")
		})
		res, err := p.Process(ctx, docs("https://x/1"), opts)

		require.Error(t, err)
		assert.Equal(t, docingest.StageEmbedding, res.Outcomes[0].FailedStage)
		stored, err := p.Store.GetDocumentsByFilters(ctx, docingest.Filters{docingest.FieldSourceURL: "https://x/1"}, 10, 1)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, first.Outcomes[0].Snippets[0].ID, stored[0].ID)
	})

	t.Run("rejected snippets leave previous set in place", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		ctx := context.Background()
		opts := pipeline.Options{Technology: testTech}

		first, err := p.Process(ctx, docs("https://x/1"), opts)
		require.NoError(t, err)

		p.Chunker = &mock.Chunker{
			ChunkFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.ChunkOptions) ([]docingest.SnippetDraft, error) {
				return []docingest.SnippetDraft{
					{Title: "Setup", Content: markdown},
					{Title: "Events", Content: markdown},
				}, nil
			},
		}
		inner := p.Store
		p.Store = failingAdds(inner, func(ctx context.Context, snippets []*docingest.Snippet) (*docingest.AddResult, error) {
			res, err := inner.AddDocuments(ctx, snippets[:1])
			if err != nil {
				return nil, err
			}
			res.Failed = append(res.Failed, docingest.AddFailure{SnippetID: snippets[1].ID, Err: errors.New("disk full")})
			return res, nil
		})
		_, err = p.Process(ctx, docs("https://x/1"), opts)

		require.Error(t, err)
		stored, err := inner.GetDocumentsByFilters(ctx, docingest.Filters{docingest.FieldSourceURL: "https://x/1"}, 10, 1)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, first.Outcomes[0].Snippets[0].ID, stored[0].ID)
	})

	t.Run("totals tokens of cleaned markdown", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.TokenCounter = &mock.TokenCounter{
			CountTokensFn: func(ctx context.Context, text string) (int, error) {
				return len(text), nil
			},
		}

		res, err := p.Process(context.Background(), docs("https://x/1", "https://x/22"), pipeline.Options{Technology: testTech})

		require.NoError(t, err)
		assert.Equal(t, len("# https://x/1")+len("# https://x/22"), res.Tokens)
	})
}

func TestPipeline_Process_Cancellation(t *testing.T) {
	t.Parallel()

	t.Run("skips documents once cancelled", func(t *testing.T) {
		t.Parallel()

		var started atomic.Int32
		p := newTestPipeline(t)
		p.Cleaner = &mock.Cleaner{
			CleanFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
				started.Add(1)
				return markdown, nil
			},
		}

		res, err := p.Process(context.Background(), docs("https://x/1", "https://x/2", "https://x/3"), pipeline.Options{
			Technology:     testTech,
			MaxConcurrency: 1,
			Cancelled:      func() bool { return started.Load() >= 1 },
		})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Succeeded)
		assert.Equal(t, 2, res.Cancelled)
		assert.Equal(t, 0, res.Failed)
		assert.True(t, res.Outcomes[1].Cancelled())
		assert.Equal(t, docingest.StageError, res.Outcomes[1].Stage)
	})

	t.Run("reports cancellation when nothing started", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)

		res, err := p.Process(context.Background(), docs("https://x/1"), pipeline.Options{
			Technology: testTech,
			Cancelled:  func() bool { return true },
		})

		assert.Equal(t, docingest.ECANCELED, docingest.ErrorCode(err))
		assert.Equal(t, 1, res.Cancelled)
	})
}

func TestPipeline_Process_Progress(t *testing.T) {
	t.Parallel()

	t.Run("reports every stage in order", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		var events []docingest.StageEvent

		_, err := p.Process(context.Background(), docs("https://x/1"), pipeline.Options{
			Technology: testTech,
			OnProgress: func(ev docingest.StageEvent) { events = append(events, ev) },
		})

		require.NoError(t, err)
		var stages []docingest.DocumentStage
		var progress []int
		for _, ev := range events {
			stages = append(stages, ev.Stage)
			progress = append(progress, ev.StageProgress)
		}
		assert.Equal(t, []docingest.DocumentStage{
			docingest.StageConverting, docingest.StageCleaning, docingest.StageChunking,
			docingest.StageEmbedding, docingest.StageComplete,
		}, stages)
		assert.Equal(t, []int{0, 25, 50, 75, 100}, progress)
		last := events[len(events)-1]
		assert.Equal(t, 1, last.Completed)
		assert.Equal(t, 100, last.Overall)
	})

	t.Run("error keeps progress of failed stage", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.Chunker = &mock.Chunker{
			ChunkFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.ChunkOptions) ([]docingest.SnippetDraft, error) {
				return nil, errors.New("boom")
			},
		}
		var events []docingest.StageEvent

		_, _ = p.Process(context.Background(), docs("https://x/1"), pipeline.Options{
			Technology: testTech,
			OnProgress: func(ev docingest.StageEvent) { events = append(events, ev) },
		})

		last := events[len(events)-1]
		assert.Equal(t, docingest.StageError, last.Stage)
		assert.Equal(t, 50, last.StageProgress)
		assert.Error(t, last.Err)
	})

	t.Run("completed count is monotonic and bounded", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		p.Cleaner = &mock.Cleaner{
			CleanFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
				if strings.HasSuffix(markdown, "3") {
					return "", errors.New("boom")
				}
				return markdown, nil
			},
		}
		var mu sync.Mutex
		var events []docingest.StageEvent

		_, err := p.Process(context.Background(), docs("https://x/1", "https://x/2", "https://x/3", "https://x/4"), pipeline.Options{
			Technology: testTech,
			OnProgress: func(ev docingest.StageEvent) {
				mu.Lock()
				defer mu.Unlock()
				events = append(events, ev)
			},
		})

		require.NoError(t, err)
		prev := 0
		terminal := 0
		for _, ev := range events {
			assert.GreaterOrEqual(t, ev.Completed, prev)
			assert.LessOrEqual(t, ev.Completed, ev.Total)
			assert.Equal(t, ev.Completed*100/ev.Total, ev.Overall)
			prev = ev.Completed
			if ev.Stage.Terminal() {
				terminal++
			}
		}
		assert.Equal(t, 4, terminal)
		assert.Equal(t, 4, prev)
	})
}

func TestPipeline_Process_Frontier(t *testing.T) {
	t.Parallel()

	t.Run("records outcomes on the frontier", func(t *testing.T) {
		t.Parallel()

		db, store := setupStore(t)
		ctx := context.Background()
		session := &docingest.CrawlSession{
			Name:        "tauri",
			PrefixPath:  "https://x",
			VectorStore: docingest.VectorStoreConfig{Backend: docingest.BackendLocal},
		}
		require.NoError(t, sqlite.NewSessionService(db).CreateSession(ctx, session))
		urls := sqlite.NewCrawlURLService(db)
		frontier := crawl.NewFrontier(session, urls)
		require.NoError(t, frontier.Open(ctx))
		for _, u := range []string{"https://x/1", "https://x/2"} {
			_, _, err := frontier.Submit(ctx, u)
			require.NoError(t, err)
			require.NoError(t, frontier.MarkCrawled(ctx, u, "<p>"+u+"</p>", "# "+u))
		}
		batch, err := frontier.PendingBatch(ctx, nil, docingest.OpProcess)
		require.NoError(t, err)
		require.Len(t, batch, 2)

		p := newTestPipeline(t)
		p.Store = store
		p.Frontier = frontier
		p.Cleaner = &mock.Cleaner{
			CleanFn: func(ctx context.Context, markdown string, tech docingest.TechnologyMetadata, opts docingest.LLMOptions) (string, error) {
				if strings.HasSuffix(markdown, "2") {
					return "", errors.New("boom")
				}
				return "cleaned " + markdown, nil
			},
		}

		_, err = p.Process(ctx, pipeline.DocumentsFromURLs(batch), pipeline.Options{Technology: testTech})

		require.NoError(t, err)
		ok, err := urls.FindCrawlURL(ctx, session.ID, "https://x/1")
		require.NoError(t, err)
		assert.Equal(t, docingest.StatusProcessed, ok.Status)
		assert.Equal(t, "cleaned # https://x/1", ok.CleanedMarkdown)
		assert.Equal(t, 1, ok.SnippetCount)

		failed, err := urls.FindCrawlURL(ctx, session.ID, "https://x/2")
		require.NoError(t, err)
		assert.Equal(t, docingest.StatusError, failed.Status)
		assert.Contains(t, failed.Error, "boom")
		assert.Equal(t, 0, frontier.Stats().InFlight)
	})

	t.Run("unrecorded result rolls back its snippets", func(t *testing.T) {
		t.Parallel()

		p := newTestPipeline(t)
		ctx := context.Background()
		var reason error
		p.Frontier = &mock.URLFrontier{
			MarkProcessedFn: func(ctx context.Context, url, cleaned string, snippets int) error {
				return docingest.Errorf(docingest.EUNAVAILABLE, "database is locked")
			},
			MarkErrorFn: func(ctx context.Context, url string, err error) error {
				reason = err
				return nil
			},
		}

		res, err := p.Process(ctx, docs("https://x/1"), pipeline.Options{Technology: testTech})

		require.Error(t, err)
		assert.False(t, res.Outcomes[0].Succeeded())
		assert.Contains(t, reason.Error(), "database is locked")
		stored, err := p.Store.GetDocumentsByFilters(ctx, docingest.Filters{docingest.FieldSourceURL: "https://x/1"}, 10, 1)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})
}
