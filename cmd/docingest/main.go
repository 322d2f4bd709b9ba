package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/gemini"
	dihttp "github.com/fwojciec/docingest/http"
	"github.com/fwojciec/docingest/pgvector"
	"github.com/fwojciec/docingest/progress"
	dislog "github.com/fwojciec/docingest/slog"
	"github.com/fwojciec/docingest/sqlite"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()
	stop := m.interruptTasks()

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Tracker records crawl and process tasks for the whole run.
	Tracker *progress.Tracker

	// Services for end-to-end testing.
	SessionService  docingest.SessionService
	CrawlURLService docingest.CrawlURLService
	ProxyService    docingest.ProxyService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath:  defaultDBPath(),
		Tracker: progress.NewTracker(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:     ctx,
		Stdout:  stdout,
		Stderr:  stderr,
		Tracker: m.Tracker,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docingest"),
		kong.Description("Crawl documentation sites into a searchable snippet store."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docingest --help' to see available commands")
	}
	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	command := kongCtx.Command()

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	if cli.DB != "" {
		m.DBPath = cli.DB
	}
	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set DOCINGEST_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	m.SessionService = sqlite.NewSessionService(m.DB)
	m.CrawlURLService = sqlite.NewCrawlURLService(m.DB)
	m.ProxyService = sqlite.NewProxyService(m.DB)
	deps.DB = m.DB
	deps.Sessions = m.SessionService
	deps.URLs = m.CrawlURLService
	deps.Proxies = m.ProxyService
	deps.Sitemaps = dihttp.NewSitemapService(nil)
	deps.OpenVectorStore = m.vectorStoreOpener(cli.Verbose, logger)
	if cli.Verbose {
		deps.Sitemaps = dislog.NewLoggingSitemapService(deps.Sitemaps, logger)
	}

	switch {
	case strings.HasPrefix(command, "crawl"):
		fetcher := dihttp.NewFetcher()
		defer fetcher.Close()
		deps.Fetcher = fetcher
		if cli.Verbose {
			deps.Fetcher = dislog.NewLoggingFetcher(fetcher, logger)
		}
		if cli.Crawl.ProxyList != "" {
			deps.ProxySource = dihttp.NewProxyListSource(cli.Crawl.ProxyList, nil)
		}

	case strings.HasPrefix(command, "proxies refresh"):
		if cli.Proxies.Refresh.ProxyList != "" {
			deps.ProxySource = dihttp.NewProxyListSource(cli.Proxies.Refresh.ProxyList, nil)
		}

	case strings.HasPrefix(command, "process"), strings.HasPrefix(command, "search"):
		apiKey := cli.Process.APIKey
		if strings.HasPrefix(command, "search") {
			apiKey = cli.Search.APIKey
		}
		client, err := newGeminiClient(ctx, apiKey, stderr)
		if err != nil {
			return err
		}

		deps.Embedder = gemini.NewEmbedder(client)
		if cli.Verbose {
			deps.Embedder = dislog.NewLoggingEmbedder(deps.Embedder, logger)
		}

		if strings.HasPrefix(command, "process") {
			deps.Cleaner = gemini.NewCleaner(client)
			deps.Chunker = gemini.NewChunker(client)
			if cli.Verbose {
				deps.Cleaner = dislog.NewLoggingCleaner(deps.Cleaner, logger)
				deps.Chunker = dislog.NewLoggingChunker(deps.Chunker, logger)
			}

			tokenCounter, err := gemini.NewTokenCounter(gemini.DefaultModel)
			if err != nil {
				return fmt.Errorf("failed to create token counter: %w", err)
			}
			deps.TokenCounter = tokenCounter
		}
	}

	return kongCtx.Run(deps)
}

func newGeminiClient(ctx context.Context, apiKey string, stderr io.Writer) (*genai.Client, error) {
	if apiKey == "" {
		fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
		return nil, fmt.Errorf("GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}
	return client, nil
}

// vectorStoreOpener returns a function resolving a session's vector store
// configuration. The local backend shares the open database unless the
// session names its own file.
func (m *Main) vectorStoreOpener(verbose bool, logger *slog.Logger) func(docingest.VectorStoreConfig) (docingest.VectorStore, error) {
	return func(cfg docingest.VectorStoreConfig) (docingest.VectorStore, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		var store docingest.VectorStore
		switch cfg.Backend {
		case docingest.BackendPgvector:
			store = pgvector.NewVectorStore(pgvector.Config{
				DSN:        cfg.Pgvector.DSN,
				Table:      cfg.Pgvector.Table,
				Dimensions: cfg.Pgvector.Dimensions,
			})
		default:
			if cfg.Local != nil && cfg.Local.Path != "" {
				store = sqlite.NewVectorStoreAt(cfg.Local.Path)
			} else {
				store = sqlite.NewVectorStore(m.DB)
			}
		}

		if verbose {
			store = dislog.NewLoggingVectorStore(store, logger)
		}
		return store, nil
	}
}

// interruptTasks cancels every running task on the first interrupt, so
// in-flight pages finish and are recorded. A second interrupt exits.
func (m *Main) interruptTasks() (stop func()) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt)
	done := make(chan struct{})

	go func() {
		select {
		case <-sig:
		case <-done:
			return
		}
		fmt.Fprintln(os.Stderr, "Interrupted: finishing in-flight pages (Ctrl-C again to quit)")
		for _, task := range m.Tracker.List() {
			if !task.Status.Terminal() {
				_ = m.Tracker.Cancel(task.ID)
			}
		}
		select {
		case <-sig:
			os.Exit(130)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}

func defaultDBPath() string {
	if path := os.Getenv("DOCINGEST_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "docingest.db"
	}
	dir := filepath.Join(home, ".docingest")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "docingest.db")
}
