// Package fs exports crawled documentation to Markdown files on disk.
package fs

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fwojciec/docingest"
)

// URLToPath converts a page URL to a relative Markdown file path.
// Example: https://example.com/docs/api/users → docs/api/users.md
func URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", docingest.Errorf(docingest.EINVALID, "invalid URL %q: %s", rawURL, err)
	}

	p := u.Path
	if p == "" || p == "/" {
		return "index.md", nil
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", docingest.Errorf(docingest.EINVALID, "path traversal in URL %q", rawURL)
		}
	}

	trailing := strings.HasSuffix(p, "/")
	p = strings.TrimPrefix(path.Clean(p), "/")
	p = strings.TrimSuffix(p, ".html")
	if trailing {
		return p + "/index.md", nil
	}
	return p + ".md", nil
}

// FormatPage renders a processed page as Markdown with YAML frontmatter.
// Cleaned Markdown is preferred over the raw conversion.
func FormatPage(page *docingest.CrawlURL, tech docingest.TechnologyMetadata) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("source: ")
	b.WriteString(page.URL)
	if name := tech.Name(); name != "" {
		b.WriteString("\ntechnology: ")
		b.WriteString(name)
		if v := tech.Version(); v != "" {
			b.WriteString(" ")
			b.WriteString(v)
		}
	}
	if page.ContentHash != "" {
		b.WriteString("\nhash: ")
		b.WriteString(page.ContentHash)
	}
	b.WriteString("\nupdated: ")
	b.WriteString(page.UpdatedAt.Format("2006-01-02"))
	b.WriteString("\n---\n\n")
	b.WriteString(pageContent(page))
	return b.String()
}

func pageContent(page *docingest.CrawlURL) string {
	if page.CleanedMarkdown != "" {
		return page.CleanedMarkdown
	}
	return page.Markdown
}

// Exporter writes pages into a staging directory and swaps it into place
// on Commit, so an interrupted export never leaves a half-written tree.
type Exporter struct {
	baseDir string
	name    string
	tech    docingest.TechnologyMetadata
}

// NewExporter creates an Exporter that writes to baseDir/name.
func NewExporter(baseDir, name string, tech docingest.TechnologyMetadata) *Exporter {
	return &Exporter{baseDir: baseDir, name: name, tech: tech}
}

func (e *Exporter) stagingDir() string {
	return filepath.Join(e.baseDir, e.name+".tmp")
}

// Dir returns the final export directory.
func (e *Exporter) Dir() string {
	return filepath.Join(e.baseDir, e.name)
}

// Save writes one page to the staging directory. Pages without Markdown
// are rejected with EINVALID.
func (e *Exporter) Save(ctx context.Context, page *docingest.CrawlURL) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pageContent(page) == "" {
		return docingest.Errorf(docingest.EINVALID, "page %s has no markdown", page.URL)
	}

	rel, err := URLToPath(page.URL)
	if err != nil {
		return err
	}

	full := filepath.Join(e.stagingDir(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(FormatPage(page, e.tech)), 0o644)
}

// Commit replaces the export directory with the staged pages.
func (e *Exporter) Commit() error {
	if err := os.MkdirAll(e.stagingDir(), 0o755); err != nil {
		return err
	}
	if err := os.RemoveAll(e.Dir()); err != nil {
		return err
	}
	return os.Rename(e.stagingDir(), e.Dir())
}

// Abort discards the staged pages.
func (e *Exporter) Abort() error {
	return os.RemoveAll(e.stagingDir())
}
