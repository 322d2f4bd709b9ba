package docingest_test

import (
	"testing"

	"github.com/fwojciec/docingest"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to docingest.URLStatus
		want     bool
	}{
		{docingest.StatusPending, docingest.StatusCrawled, true},
		{docingest.StatusPending, docingest.StatusSkipped, true},
		{docingest.StatusPending, docingest.StatusProcessed, false},
		{docingest.StatusCrawled, docingest.StatusProcessed, true},
		{docingest.StatusCrawled, docingest.StatusPending, false},
		{docingest.StatusProcessed, docingest.StatusProcessed, true},
		{docingest.StatusProcessed, docingest.StatusError, false},
		{docingest.StatusError, docingest.StatusProcessed, true},
		{docingest.StatusSkipped, docingest.StatusCrawled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, docingest.CanTransition(tt.from, tt.to))
		})
	}
}

func TestOperation_Eligible(t *testing.T) {
	t.Parallel()

	pending := &docingest.CrawlURL{Status: docingest.StatusPending}
	crawled := &docingest.CrawlURL{Status: docingest.StatusCrawled, HTML: "<p>x</p>"}
	processed := &docingest.CrawlURL{Status: docingest.StatusProcessed, HTML: "<p>x</p>"}
	fetchFailed := &docingest.CrawlURL{Status: docingest.StatusError}
	processFailed := &docingest.CrawlURL{Status: docingest.StatusError, HTML: "<p>x</p>"}

	assert.True(t, docingest.OpCrawl.Eligible(pending))
	assert.False(t, docingest.OpCrawl.Eligible(crawled))

	assert.True(t, docingest.OpProcess.Eligible(crawled))
	assert.True(t, docingest.OpProcess.Eligible(processFailed))
	assert.False(t, docingest.OpProcess.Eligible(fetchFailed))
	assert.False(t, docingest.OpProcess.Eligible(processed))

	assert.True(t, docingest.OpReprocess.Eligible(processed))
	assert.False(t, docingest.OpReprocess.Eligible(pending))
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://example.com/docs", docingest.NormalizeURL("https://example.com/docs#install"))
	assert.Equal(t, "https://example.com/docs", docingest.NormalizeURL("https://example.com/docs"))
}
