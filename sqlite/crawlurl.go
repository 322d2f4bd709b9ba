package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docingest.CrawlURLService = (*CrawlURLService)(nil)

// CrawlURLService implements docingest.CrawlURLService using SQLite.
type CrawlURLService struct {
	db *DB
}

// NewCrawlURLService creates a new CrawlURLService.
func NewCrawlURLService(db *DB) *CrawlURLService {
	return &CrawlURLService{db: db}
}

const crawlURLColumns = `id, session_id, url, status, html, markdown, cleaned_markdown,
	content_hash, snippet_count, error, created_at, updated_at`

// Without content the body columns are selected as empty strings, keeping
// the scan layout identical.
const crawlURLSummaryColumns = `id, session_id, url, status, '', '', '',
	content_hash, snippet_count, error, created_at, updated_at`

// CreateCrawlURL inserts a new URL. Status defaults to pending.
func (s *CrawlURLService) CreateCrawlURL(ctx context.Context, u *docingest.CrawlURL) error {
	if err := u.Validate(); err != nil {
		return err
	}

	u.ID = uuid.New().String()
	if u.Status == "" {
		u.Status = docingest.StatusPending
	}
	if u.HTML != "" {
		u.ContentHash = hashContent(u.HTML)
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_urls (`+crawlURLColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.SessionID, u.URL, string(u.Status), u.HTML, u.Markdown, u.CleanedMarkdown,
		u.ContentHash, u.SnippetCount, u.Error, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if isUniqueViolation(err) {
		return docingest.Errorf(docingest.ECONFLICT, "url %s already exists in session", u.URL)
	}
	return err
}

// FindCrawlURL retrieves a URL by session and address, including content.
func (s *CrawlURLService) FindCrawlURL(ctx context.Context, sessionID, url string) (*docingest.CrawlURL, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+crawlURLColumns+`
		FROM crawl_urls
		WHERE session_id = ? AND url = ?
	`, sessionID, url)

	u, err := scanCrawlURL(row)
	if err == sql.ErrNoRows {
		return nil, docingest.Errorf(docingest.ENOTFOUND, "url not found")
	}
	return u, err
}

func findCrawlURLByID(ctx context.Context, tx *sql.Tx, id string) (*docingest.CrawlURL, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+crawlURLColumns+` FROM crawl_urls WHERE id = ?`, id)

	u, err := scanCrawlURL(row)
	if err == sql.ErrNoRows {
		return nil, docingest.Errorf(docingest.ENOTFOUND, "url not found")
	}
	return u, err
}

// FindCrawlURLs retrieves URLs matching the filter in discovery order.
func (s *CrawlURLService) FindCrawlURLs(ctx context.Context, filter docingest.CrawlURLFilter) ([]*docingest.CrawlURL, error) {
	var query strings.Builder
	var args []any

	columns := crawlURLSummaryColumns
	if filter.WithContent {
		columns = crawlURLColumns
	}
	query.WriteString("SELECT " + columns + " FROM crawl_urls WHERE 1=1")

	if filter.SessionID != nil {
		query.WriteString(" AND session_id = ?")
		args = append(args, *filter.SessionID)
	}
	statuses := make([]string, len(filter.Statuses))
	for i, status := range filter.Statuses {
		statuses[i] = string(status)
	}
	appendIn(&query, &args, "status", statuses)
	appendIn(&query, &args, "url", filter.URLs)

	query.WriteString(" ORDER BY rowid ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []*docingest.CrawlURL
	for rows.Next() {
		u, err := scanCrawlURL(rows)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// UpdateCrawlURL applies an update. Status changes must follow the
// forward-only transition table; a disallowed one returns EINVALID and
// leaves the row unchanged. The check and the write share a transaction,
// and the write is conditional on the status that was checked: if the row
// moved in the meantime, ECONFLICT is returned.
func (s *CrawlURLService) UpdateCrawlURL(ctx context.Context, id string, upd docingest.CrawlURLUpdate) (*docingest.CrawlURL, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u, err := findCrawlURLByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	from := u.Status

	if upd.Status != nil && !docingest.CanTransition(u.Status, *upd.Status) {
		return nil, docingest.Errorf(docingest.EINVALID, "cannot move %s from %s to %s", u.URL, u.Status, *upd.Status)
	}

	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.HTML != nil {
		u.HTML = *upd.HTML
		u.ContentHash = hashContent(u.HTML)
	} else if upd.ContentHash != nil {
		u.ContentHash = *upd.ContentHash
	}
	if upd.Markdown != nil {
		u.Markdown = *upd.Markdown
	}
	if upd.CleanedMarkdown != nil {
		u.CleanedMarkdown = *upd.CleanedMarkdown
	}
	if upd.SnippetCount != nil {
		u.SnippetCount = *upd.SnippetCount
	}
	if upd.Error != nil {
		u.Error = *upd.Error
	}

	u.UpdatedAt = time.Now().UTC()

	// The write only lands if the row still has the status that was checked,
	// so another process cannot slip a transition in between.
	res, err := tx.ExecContext(ctx, `
		UPDATE crawl_urls
		SET status = ?, html = ?, markdown = ?, cleaned_markdown = ?, content_hash = ?,
			snippet_count = ?, error = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(u.Status), u.HTML, u.Markdown, u.CleanedMarkdown, u.ContentHash,
		u.SnippetCount, u.Error, formatTime(u.UpdatedAt), id, string(from))
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, docingest.Errorf(docingest.ECONFLICT, "url %s is no longer %s", u.URL, from)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

// CountCrawlURLs returns the number of URLs per status for a session.
// Every status is present in the result.
func (s *CrawlURLService) CountCrawlURLs(ctx context.Context, sessionID string) (map[docingest.URLStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM crawl_urls WHERE session_id = ? GROUP BY status
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[docingest.URLStatus]int, len(docingest.URLStatuses))
	for _, status := range docingest.URLStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var status docingest.URLStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

func scanCrawlURL(row scanner) (*docingest.CrawlURL, error) {
	var u docingest.CrawlURL
	var createdAt, updatedAt string

	if err := row.Scan(&u.ID, &u.SessionID, &u.URL, &u.Status, &u.HTML, &u.Markdown, &u.CleanedMarkdown,
		&u.ContentHash, &u.SnippetCount, &u.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if u.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	return &u, nil
}
