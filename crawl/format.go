package crawl

import (
	"fmt"
	"strings"

	"github.com/fwojciec/docingest"
)

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatStatusCounts renders per-status URL counts in lifecycle order,
// omitting statuses with no URLs.
func FormatStatusCounts(counts map[docingest.URLStatus]int) string {
	var parts []string
	total := 0
	for _, status := range docingest.URLStatuses {
		n := counts[status]
		total += n
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", status, n))
		}
	}
	if total == 0 {
		return "no URLs"
	}
	return fmt.Sprintf("%d URLs (%s)", total, strings.Join(parts, ", "))
}

// FormatTokens formats token count in human-readable form.
func FormatTokens(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("~%d tokens", tokens)
	}
	return fmt.Sprintf("~%dk tokens", (tokens+500)/1000)
}
