package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docingest"
)

// Ensure LoggingSitemapService implements docingest.SitemapService.
var _ docingest.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService wraps a SitemapService with discovery logging.
type LoggingSitemapService struct {
	next   docingest.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next docingest.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs delegates to the wrapped service. A discovery that finds no
// URLs is logged at warn.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter docingest.URLFilter) (urls []string, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"site", baseURL,
			"prefix", filter.PrefixPath,
			"anti_paths", len(filter.AntiPaths),
			"found", len(urls),
			"duration", time.Since(begin),
		}
		switch {
		case err != nil:
			attrs = append(attrs, "code", docingest.ErrorCode(err), "err", err)
			s.logger.Error("sitemap discovery failed", attrs...)
		case len(urls) == 0:
			s.logger.Warn("sitemap discovery found nothing", attrs...)
		default:
			s.logger.Info("sitemap discovery", attrs...)
		}
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL, filter)
}
