package main

import (
	"fmt"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/fwojciec/docingest/gemini"
	"github.com/fwojciec/docingest/pipeline"
	"github.com/fwojciec/docingest/progress"
)

// Run executes the process command.
func (c *ProcessCmd) Run(deps *Dependencies) error {
	session, err := findSession(deps, c.Name)
	if err != nil {
		return err
	}

	frontier := crawl.NewFrontier(session, deps.URLs)
	if err := frontier.Open(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	op := docingest.OpProcess
	if c.Reprocess {
		op = docingest.OpReprocess
	}
	batch, err := frontier.PendingBatch(deps.Ctx, c.URL, op)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}
	if len(batch) == 0 {
		fmt.Fprintln(deps.Stdout, "Nothing to process. Run 'docingest crawl' first or pass --reprocess.")
		return nil
	}

	store, err := deps.OpenVectorStore(session.VectorStore)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}
	defer store.Close()

	pipe := &pipeline.Pipeline{
		Converter:    newConverter(session.PrefixPath),
		Extractor:    newExtractor(c.Extractor),
		Cleaner:      deps.Cleaner,
		Chunker:      deps.Chunker,
		Embedder:     deps.Embedder,
		Store:        store,
		TokenCounter: deps.TokenCounter,
		Frontier:     frontier,
	}

	llm := docingest.LLMOptions{Model: c.Model, Temperature: gemini.DefaultTemperature}
	task := deps.Tracker.Create("process", progress.ProcessStages...)
	fmt.Fprintf(deps.Stdout, "  Processing %d pages\n", len(batch))

	result, err := pipe.Process(deps.Ctx, pipeline.DocumentsFromURLs(batch), pipeline.Options{
		MaxConcurrency: session.MaxConcurrency,
		Technology:     session.Technology,
		Clean:          llm,
		Chunk:          docingest.ChunkOptions{LLMOptions: llm, ExtractConcepts: c.Concepts},
		Embed:          embedOptions(session, c.EmbeddingModel),
		Cancelled:      deps.Tracker.Canceller(task.ID),
		OnProgress:     deps.Tracker.ObserveStages(task.ID),
	})
	if result != nil {
		for _, o := range result.Outcomes {
			if o.Err != nil && !o.Cancelled() {
				fmt.Fprintf(deps.Stderr, "  skip %s (%s): %s\n", crawl.TruncateURL(o.URL, 80), o.FailedStage, docingest.ErrorMessage(o.Err))
			}
		}
	}
	if err != nil {
		if docingest.ErrorCode(err) == docingest.ECANCELED {
			_ = deps.Tracker.Cancel(task.ID)
		} else {
			_ = deps.Tracker.Fail(task.ID, err)
		}
		fmt.Fprintf(deps.Stderr, "error processing: %s\n", docingest.ErrorMessage(err))
		return err
	}
	if !deps.Tracker.IsCancelled(task.ID) {
		_ = deps.Tracker.Complete(task.ID)
	}

	fmt.Fprintf(deps.Stdout, "  Processed %d pages into %d snippets (%s), %d failed, %d cancelled\n",
		result.Succeeded, result.Snippets, crawl.FormatTokens(result.Tokens), result.Failed, result.Cancelled)
	return nil
}

// embedOptions sizes embeddings to the session's store. The local store
// accepts any size, so it uses the model default.
func embedOptions(session *docingest.CrawlSession, model string) docingest.EmbedOptions {
	dims := gemini.DefaultDimensions
	if pg := session.VectorStore.Pgvector; session.VectorStore.Backend == docingest.BackendPgvector && pg != nil {
		dims = pg.Dimensions
	}
	return docingest.EmbedOptions{Model: model, Dimensions: dims}
}
