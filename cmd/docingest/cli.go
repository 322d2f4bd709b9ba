package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/progress"
	"github.com/fwojciec/docingest/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	DB       *sqlite.DB
	Sessions docingest.SessionService
	URLs     docingest.CrawlURLService
	Proxies  docingest.ProxyService
	Sitemaps docingest.SitemapService
	Tracker  *progress.Tracker

	// Wired only for the commands that need them.
	Fetcher      docingest.Fetcher
	ProxySource  docingest.ProxyListSource
	Cleaner      docingest.Cleaner
	Chunker      docingest.Chunker
	Embedder     docingest.Embedder
	TokenCounter docingest.TokenCounter

	// OpenVectorStore resolves a session's vector store configuration.
	OpenVectorStore func(docingest.VectorStoreConfig) (docingest.VectorStore, error)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB      string `name:"db" env:"DOCINGEST_DB" help:"Database path (default ~/.docingest/docingest.db)"`
	Verbose bool   `short:"v" help:"Log fetches, LLM calls and store writes to stderr"`

	Session SessionCmd `cmd:"" help:"Manage crawl sessions"`
	Crawl   CrawlCmd   `cmd:"" help:"Crawl a session's pending URLs"`
	Process ProcessCmd `cmd:"" help:"Clean, chunk and embed crawled pages"`
	Search  SearchCmd  `cmd:"" help:"Semantic search over a session's snippets"`
	Browse  BrowseCmd  `cmd:"" help:"List stored snippets by metadata"`
	URLs    URLsCmd    `cmd:"" name:"urls" help:"Show URL status counts for a session"`
	Export  ExportCmd  `cmd:"" help:"Write processed pages to Markdown files"`
	Proxies ProxiesCmd `cmd:"" help:"Manage the proxy pool"`
}

// SessionCmd groups the session subcommands.
type SessionCmd struct {
	Add    SessionAddCmd    `cmd:"" help:"Create a session"`
	List   SessionListCmd   `cmd:"" help:"List sessions"`
	Filter SessionFilterCmd `cmd:"" help:"Edit a session's URL filters and concurrency"`
	Delete SessionDeleteCmd `cmd:"" help:"Delete a session and its URLs"`
}

// SessionAddCmd is the "session add" subcommand.
type SessionAddCmd struct {
	Name        string   `arg:"" help:"Session name"`
	Prefix      string   `arg:"" help:"URL prefix; pages outside it are never crawled"`
	AntiPath    []string `name:"anti-path" help:"Skip URLs whose path starts with this (repeatable)"`
	AntiKeyword []string `name:"anti-keyword" help:"Skip URLs containing this keyword (repeatable)"`
	Concurrency int      `short:"c" default:"10" help:"Max concurrent workers, 0 for unlimited"`

	Category         string `default:"library" enum:"language,framework,library" help:"Technology category"`
	Language         string `help:"Programming language"`
	LanguageVersion  string `name:"language-version"`
	Framework        string `help:"Framework name"`
	FrameworkVersion string `name:"framework-version"`
	Library          string `help:"Library name"`
	LibraryVersion   string `name:"library-version"`

	Backend    string `default:"local" enum:"local,pgvector" help:"Vector store backend"`
	VectorPath string `name:"vector-path" help:"Separate SQLite file for snippets (local backend)"`
	PgDSN      string `name:"pg-dsn" env:"DOCINGEST_PG_DSN" help:"Postgres connection string (pgvector backend)"`
	PgTable    string `name:"pg-table" help:"Postgres table for snippets"`
	Dimensions int    `default:"768" help:"Embedding dimensions"`
}

// SessionListCmd is the "session list" subcommand.
type SessionListCmd struct{}

// SessionFilterCmd is the "session filter" subcommand.
type SessionFilterCmd struct {
	Name        string   `arg:"" help:"Session name"`
	AntiPath    []string `name:"anti-path" help:"Replace the anti-paths (repeatable)"`
	AntiKeyword []string `name:"anti-keyword" help:"Replace the anti-keywords (repeatable)"`
	Clear       bool     `help:"Remove all anti-paths and anti-keywords"`
	Concurrency int      `short:"c" default:"-1" help:"New max concurrency, 0 for unlimited"`
}

// SessionDeleteCmd is the "session delete" subcommand.
type SessionDeleteCmd struct {
	Name  string `arg:"" help:"Session name"`
	Force bool   `help:"Confirm deletion"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	Name      string  `arg:"" help:"Session name"`
	Sitemap   bool    `default:"true" negatable:"" help:"Seed the frontier from the site's sitemap"`
	Recursive bool    `short:"r" help:"Follow discovered links in the same run"`
	MaxPages  int     `name:"max-pages" default:"1000" help:"Page limit for recursive crawls"`
	Extractor string  `default:"trafilatura" enum:"trafilatura,readability,none" help:"Main-content extractor"`
	RPS       float64 `name:"rps" default:"1" help:"Requests per second per domain, 0 to disable"`
	UseProxy  bool    `name:"proxies" help:"Route requests through the proxy pool"`
	ProxyList string  `name:"proxy-list" env:"DOCINGEST_PROXY_LIST" help:"Proxy list URL used when the pool is empty"`
}

// ProcessCmd is the "process" subcommand.
type ProcessCmd struct {
	Name           string   `arg:"" help:"Session name"`
	URL            []string `name:"url" help:"Only process these URLs (repeatable)"`
	Reprocess      bool     `help:"Include already processed pages"`
	Extractor      string   `default:"trafilatura" enum:"trafilatura,readability,none" help:"Extractor for pages without Markdown"`
	Model          string   `default:"gemini-2.5-flash" help:"Model for cleaning and chunking"`
	EmbeddingModel string   `name:"embedding-model" default:"gemini-embedding-001" help:"Embedding model"`
	Concepts       bool     `default:"true" negatable:"" help:"Extract key concepts per snippet"`
	APIKey         string   `name:"api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Name           string            `arg:"" help:"Session name"`
	Query          string            `arg:"" help:"Search query"`
	Limit          int               `short:"n" default:"5" help:"Maximum results"`
	Filter         map[string]string `short:"f" help:"Metadata filter key=value (repeatable)"`
	EmbeddingModel string            `name:"embedding-model" default:"gemini-embedding-001" help:"Embedding model"`
	APIKey         string            `name:"api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
}

// BrowseCmd is the "browse" subcommand.
type BrowseCmd struct {
	Name   string            `arg:"" help:"Session name"`
	Filter map[string]string `short:"f" help:"Metadata filter key=value (repeatable)"`
	Limit  int               `short:"n" default:"20" help:"Snippets per page"`
	Page   int               `default:"1" help:"Page number"`
	Full   bool              `help:"Show snippet content"`
}

// URLsCmd is the "urls" subcommand.
type URLsCmd struct {
	Name   string   `arg:"" help:"Session name"`
	Status []string `short:"s" help:"List URLs with this status: pending, crawled, processed, error or skipped (repeatable)"`
}

// ExportCmd is the "export" subcommand.
type ExportCmd struct {
	Name string `arg:"" help:"Session name"`
	Out  string `short:"o" default:"." help:"Parent directory; pages go to <out>/<session>"`
}

// ProxiesCmd groups the proxy subcommands.
type ProxiesCmd struct {
	Refresh ProxiesRefreshCmd `cmd:"" help:"Replace the pool with the published proxy list"`
	List    ProxiesListCmd    `cmd:"" help:"List pooled proxies"`
}

// ProxiesRefreshCmd is the "proxies refresh" subcommand.
type ProxiesRefreshCmd struct {
	ProxyList string `name:"proxy-list" env:"DOCINGEST_PROXY_LIST" help:"Proxy list URL"`
}

// ProxiesListCmd is the "proxies list" subcommand.
type ProxiesListCmd struct{}
