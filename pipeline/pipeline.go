// Package pipeline turns crawled pages into embedded snippets. Each
// document passes through CONVERTING, CLEANING, CHUNKING and EMBEDDING in
// order; documents run concurrently up to a configured limit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Pipeline processes documents into snippets and stores them.
type Pipeline struct {
	// Converter and Extractor produce Markdown for documents that only
	// have HTML. Extractor is optional.
	Converter docingest.Converter
	Extractor docingest.Extractor

	Cleaner  docingest.Cleaner
	Chunker  docingest.Chunker
	Embedder docingest.Embedder
	Store    docingest.VectorStore

	// TokenCounter, when set, totals tokens of cleaned Markdown.
	TokenCounter docingest.TokenCounter

	// Frontier, when set, receives MarkProcessed or MarkError per document.
	Frontier docingest.URLFrontier

	// Now returns the snippet creation time. Defaults to time.Now.
	Now func() time.Time
}

// Document is a crawled page to process.
type Document struct {
	URL      string
	HTML     string
	Markdown string
}

// DocumentsFromURLs builds documents from crawl URLs loaded with content.
func DocumentsFromURLs(urls []*docingest.CrawlURL) []Document {
	docs := make([]Document, len(urls))
	for i, u := range urls {
		docs[i] = Document{URL: u.URL, HTML: u.HTML, Markdown: u.Markdown}
	}
	return docs
}

// Options configures a Process call.
type Options struct {
	// MaxConcurrency bounds documents in flight; zero sizes the pool to
	// the batch.
	MaxConcurrency int

	Technology docingest.TechnologyMetadata
	Clean      docingest.LLMOptions
	Chunk      docingest.ChunkOptions
	Embed      docingest.EmbedOptions

	// Cancelled is polled before a document starts its stages.
	Cancelled func() bool

	// OnProgress receives stage events. Calls are serialized.
	OnProgress docingest.StageEventFunc

	// OnComplete receives one outcome per input document, in input order.
	OnComplete func([]Outcome)
}

// Outcome is the result of processing one document.
type Outcome struct {
	URL      string                  `json:"url"`
	Index    int                     `json:"index"`
	Stage    docingest.DocumentStage `json:"stage"`
	Snippets []*docingest.Snippet    `json:"snippets,omitempty"`
	Tokens   int                     `json:"tokens,omitempty"`
	Err      error                   `json:"-"`

	// FailedStage is the stage that was running when Err occurred.
	FailedStage docingest.DocumentStage `json:"failedStage,omitempty"`
}

// Succeeded reports whether the document reached COMPLETE.
func (o Outcome) Succeeded() bool {
	return o.Stage == docingest.StageComplete
}

// Cancelled reports whether the document was skipped by cancellation.
func (o Outcome) Cancelled() bool {
	return docingest.ErrorCode(o.Err) == docingest.ECANCELED
}

// Result is the manifest of a Process call.
type Result struct {
	Outcomes  []Outcome `json:"outcomes"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Cancelled int       `json:"cancelled"`
	Snippets  int       `json:"snippets"`
	Tokens    int       `json:"tokens"`
}

// Process runs every document through the stage sequence. Per-document
// failures are reported in the outcomes. An error is returned, together
// with the result, when no document succeeded. Precondition failures
// return a nil result before any document starts.
func (p *Pipeline) Process(ctx context.Context, docs []Document, opts Options) (*Result, error) {
	if err := p.validate(opts); err != nil {
		return nil, err
	}
	if err := p.Store.Initialize(ctx); err != nil {
		return nil, err
	}

	result := &Result{Outcomes: make([]Outcome, len(docs))}
	if len(docs) == 0 {
		if opts.OnComplete != nil {
			opts.OnComplete(result.Outcomes)
		}
		return result, nil
	}

	events := make(chan docingest.StageEvent, len(docs))
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		report(events, len(docs), opts.OnProgress)
	}()

	g := new(errgroup.Group)
	g.SetLimit(docingest.ResolveConcurrency(opts.MaxConcurrency, len(docs)))
	for i, doc := range docs {
		g.Go(func() error {
			result.Outcomes[i] = p.processDocument(ctx, i, doc, opts, events)
			return nil
		})
	}
	_ = g.Wait()
	close(events)
	<-reporterDone

	for _, o := range result.Outcomes {
		switch {
		case o.Succeeded():
			result.Succeeded++
			result.Snippets += len(o.Snippets)
			result.Tokens += o.Tokens
		case o.Cancelled():
			result.Cancelled++
		default:
			result.Failed++
		}
	}

	if opts.OnComplete != nil {
		opts.OnComplete(result.Outcomes)
	}

	if result.Succeeded == 0 {
		if result.Failed == 0 {
			return result, docingest.Errorf(docingest.ECANCELED, "processing cancelled before any document started")
		}
		return result, docingest.Errorf(docingest.EINTERNAL, "all %d documents failed", result.Failed)
	}
	return result, nil
}

func (p *Pipeline) validate(opts Options) error {
	if p.Cleaner == nil {
		return docingest.Errorf(docingest.EINVALID, "cleaner required")
	}
	if p.Chunker == nil {
		return docingest.Errorf(docingest.EINVALID, "chunker required")
	}
	if p.Embedder == nil {
		return docingest.Errorf(docingest.EINVALID, "embedder required")
	}
	if p.Store == nil {
		return docingest.Errorf(docingest.EUNAVAILABLE, "vector store not configured")
	}
	if !opts.Technology.Category.Valid() {
		return docingest.Errorf(docingest.EINVALID, "technology category required, got %q", opts.Technology.Category)
	}
	return opts.Technology.Validate()
}

// processDocument runs the stage sequence for one document. It holds the
// caller's concurrency slot for its whole duration.
func (p *Pipeline) processDocument(ctx context.Context, index int, doc Document, opts Options, events chan<- docingest.StageEvent) Outcome {
	out := Outcome{URL: doc.URL, Index: index}
	stage := docingest.StageConverting
	emit := func(s docingest.DocumentStage, err error) {
		events <- docingest.StageEvent{URL: doc.URL, Index: index, Stage: s, StageProgress: stageProgress(stage, s), Err: err}
	}

	if ctx.Err() != nil || (opts.Cancelled != nil && opts.Cancelled()) {
		out.Stage = docingest.StageError
		out.Err = docingest.Errorf(docingest.ECANCELED, "processing cancelled before %s started", doc.URL)
		if p.Frontier != nil {
			p.Frontier.Release(doc.URL)
		}
		emit(docingest.StageError, out.Err)
		return out
	}

	fail := func(err error) Outcome {
		out.Stage = docingest.StageError
		out.FailedStage = stage
		out.Err = err
		if p.Frontier != nil && out.Cancelled() {
			p.Frontier.Release(doc.URL)
		} else if p.Frontier != nil {
			if markErr := p.Frontier.MarkError(ctx, doc.URL, err); markErr != nil {
				out.Err = errors.Join(err, markErr)
			}
		}
		emit(docingest.StageError, out.Err)
		return out
	}

	emit(stage, nil)
	markdown, err := p.convert(doc)
	if err != nil {
		return fail(err)
	}

	stage = docingest.StageCleaning
	emit(stage, nil)
	cleaned, err := p.Cleaner.Clean(ctx, markdown, opts.Technology, opts.Clean)
	if err != nil {
		return fail(stageError(docingest.ECLEANUP, doc.URL, "clean", err))
	} else if cleaned == "" {
		return fail(docingest.Errorf(docingest.ECLEANUP, "clean %s: no content returned", doc.URL))
	}

	stage = docingest.StageChunking
	emit(stage, nil)
	snippets, err := p.chunk(ctx, doc.URL, cleaned, opts)
	if err != nil {
		return fail(err)
	}

	stage = docingest.StageEmbedding
	emit(stage, nil)
	if err := p.embed(ctx, doc.URL, snippets, opts.Embed); err != nil {
		return fail(err)
	}
	stale, err := p.storedIDs(ctx, doc.URL)
	if err != nil {
		return fail(err)
	}
	if err := p.store(ctx, doc.URL, snippets); err != nil {
		return fail(err)
	}

	if p.TokenCounter != nil {
		if n, err := p.TokenCounter.CountTokens(ctx, cleaned); err == nil {
			out.Tokens = n
		}
	}

	if p.Frontier != nil {
		if err := p.Frontier.MarkProcessed(ctx, doc.URL, cleaned, len(snippets)); err != nil {
			err = fmt.Errorf("record %s as processed: %w", doc.URL, err)
			if rbErr := p.remove(ctx, idsOf(snippets)); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("roll back new snippets for %s: %w", doc.URL, rbErr))
			}
			return fail(err)
		}
	}

	// The previous snippets go only once the new set is stored and recorded.
	if err := p.remove(ctx, stale); err != nil {
		return fail(fmt.Errorf("remove previous snippets for %s: %w", doc.URL, err))
	}

	out.Stage = docingest.StageComplete
	out.Snippets = snippets
	emit(docingest.StageComplete, nil)
	return out
}

// convert passes stored Markdown through, or converts the stored HTML.
func (p *Pipeline) convert(doc Document) (string, error) {
	if doc.Markdown != "" {
		return doc.Markdown, nil
	}
	if doc.HTML == "" {
		return "", docingest.Errorf(docingest.ECONVERT, "convert %s: no content stored", doc.URL)
	}
	if p.Converter == nil {
		return "", docingest.Errorf(docingest.ECONVERT, "convert %s: no converter configured", doc.URL)
	}

	content := doc.HTML
	if p.Extractor != nil {
		// Extraction failures fall back to the full page.
		if extracted, err := p.Extractor.Extract(doc.HTML); err == nil && extracted.ContentHTML != "" {
			content = extracted.ContentHTML
		}
	}

	markdown, err := p.Converter.Convert(content)
	if err != nil {
		return "", stageError(docingest.ECONVERT, doc.URL, "convert", err)
	} else if markdown == "" {
		return "", docingest.Errorf(docingest.ECONVERT, "convert %s: empty result", doc.URL)
	}
	return markdown, nil
}

// chunk splits cleaned Markdown and attaches snippet metadata.
func (p *Pipeline) chunk(ctx context.Context, url, cleaned string, opts Options) ([]*docingest.Snippet, error) {
	drafts, err := p.Chunker.Chunk(ctx, cleaned, opts.Technology, opts.Chunk)
	if err != nil {
		return nil, stageError(docingest.ECHUNK, url, "chunk", err)
	} else if len(drafts) == 0 {
		return nil, docingest.Errorf(docingest.ECHUNK, "chunk %s: no snippets returned", url)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	createdAt := now().UTC()

	snippets := make([]*docingest.Snippet, len(drafts))
	for i, d := range drafts {
		s := &docingest.Snippet{
			ID:                 uuid.New().String(),
			TechnologyMetadata: opts.Technology,
			SourceURL:          url,
			Title:              d.Title,
			Description:        d.Description,
			Content:            d.Content,
			Concepts:           d.Concepts,
			CreatedAt:          createdAt,
		}
		if !opts.Chunk.ExtractConcepts {
			s.Concepts = nil
		}
		if err := s.Validate(); err != nil {
			return nil, docingest.Errorf(docingest.ECHUNK, "chunk %s: snippet %d: %s", url, i+1, docingest.ErrorMessage(err))
		}
		snippets[i] = s
	}
	return snippets, nil
}

// embed computes an embedding for every snippet. Any failure fails the
// whole document; no placeholder vector is ever stored.
func (p *Pipeline) embed(ctx context.Context, url string, snippets []*docingest.Snippet, opts docingest.EmbedOptions) error {
	for _, s := range snippets {
		vec, err := p.Embedder.Embed(ctx, EmbeddingText(s), opts)
		if err != nil {
			return stageError(docingest.EEMBED, url, "embed", err)
		}
		if isZeroVector(vec) {
			return docingest.Errorf(docingest.EEMBED, "embed %s: snippet %q returned an empty vector", url, s.Title)
		}
		if opts.Dimensions > 0 && len(vec) != opts.Dimensions {
			return docingest.Errorf(docingest.EEMBED, "embed %s: got %d dimensions, want %d", url, len(vec), opts.Dimensions)
		}
		s.Embedding = vec
	}
	return nil
}

// storedPageSize is the page size used to list a URL's existing snippets.
const storedPageSize = 100

// storedIDs lists the IDs of the snippets currently stored for url.
func (p *Pipeline) storedIDs(ctx context.Context, url string) ([]string, error) {
	var ids []string
	for page := 1; ; page++ {
		found, err := p.Store.GetDocumentsByFilters(ctx, docingest.Filters{docingest.FieldSourceURL: url}, storedPageSize, page)
		if err != nil {
			return nil, fmt.Errorf("list previous snippets for %s: %w", url, err)
		}
		for _, s := range found {
			ids = append(ids, s.ID)
		}
		if len(found) < storedPageSize {
			return ids, nil
		}
	}
}

// store adds the new snippets for url. The document is all or nothing:
// if any snippet is rejected, the ones that were stored are removed again.
func (p *Pipeline) store(ctx context.Context, url string, snippets []*docingest.Snippet) error {
	res, err := p.Store.AddDocuments(ctx, snippets)
	if err != nil {
		return fmt.Errorf("store snippets for %s: %w", url, err)
	}
	if len(res.Failed) > 0 {
		_ = p.remove(ctx, res.Added)
		first := res.Failed[0]
		return docingest.Errorf(docingest.EINVALID, "store %s: %d of %d snippets rejected (%s: %s)",
			url, len(res.Failed), len(snippets), first.SnippetID, docingest.ErrorMessage(first.Err))
	}
	return nil
}

// remove deletes snippets by ID.
func (p *Pipeline) remove(ctx context.Context, ids []string) error {
	ctx = context.WithoutCancel(ctx)
	for _, id := range ids {
		if _, err := p.Store.DeleteDocumentsByFilters(ctx, docingest.Filters{docingest.FieldSnippetID: id}); err != nil {
			return err
		}
	}
	return nil
}

func idsOf(snippets []*docingest.Snippet) []string {
	ids := make([]string, len(snippets))
	for i, s := range snippets {
		ids[i] = s.ID
	}
	return ids
}

// EmbeddingText is the text embedded for a snippet.
func EmbeddingText(s *docingest.Snippet) string {
	text := s.Title
	if s.Description != "" {
		text += "\n\n" + s.Description
	}
	return text + "\n\n" + s.Content
}

// stageError gives err the stage's code unless it already carries a
// domain code of its own.
func stageError(code, url, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return docingest.Errorf(docingest.ECANCELED, "%s %s: %s", op, url, err)
	}
	if docingest.ErrorCode(err) != docingest.EINTERNAL {
		return fmt.Errorf("%s %s: %w", op, url, err)
	}
	return docingest.Errorf(code, "%s %s: %s", op, url, err)
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// stageProgress is the share of a document's four stages already done.
// ERROR keeps the progress of the stage that failed.
func stageProgress(current, reported docingest.DocumentStage) int {
	if reported == docingest.StageComplete {
		return 100
	}
	if reported == docingest.StageError {
		reported = current
	}
	for i, s := range docingest.DocumentStages {
		if s == reported {
			return i * 100 / len(docingest.DocumentStages)
		}
	}
	return 0
}

// report serializes stage events to fn, stamping each with batch totals.
// A document is counted once no matter how many terminal events it emits.
func report(events <-chan docingest.StageEvent, total int, fn docingest.StageEventFunc) {
	done := make(map[int]bool, total)
	for ev := range events {
		if ev.Stage.Terminal() && !done[ev.Index] {
			done[ev.Index] = true
		}
		ev.Completed = min(len(done), total)
		ev.Total = total
		ev.Overall = ev.Completed * 100 / total
		if fn != nil {
			fn(ev)
		}
	}
}
