package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docingest.ProxyService = (*ProxyService)(nil)

// ProxyService implements docingest.ProxyService using SQLite.
type ProxyService struct {
	db *DB
}

// NewProxyService creates a new ProxyService.
func NewProxyService(db *DB) *ProxyService {
	return &ProxyService{db: db}
}

// FindProxies returns all proxies ordered by position.
func (s *ProxyService) FindProxies(ctx context.Context) ([]*docingest.ProxyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, last_used_at, position FROM proxies ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proxies []*docingest.ProxyRecord
	for rows.Next() {
		var p docingest.ProxyRecord
		var lastUsed sql.NullString
		if err := rows.Scan(&p.ID, &p.URL, &lastUsed, &p.Position); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			t, err := parseRFC3339(lastUsed.String, "last_used_at")
			if err != nil {
				return nil, err
			}
			p.LastUsedAt = &t
		}
		proxies = append(proxies, &p)
	}

	return proxies, rows.Err()
}

// ReplaceProxies deletes removedIDs and inserts added URLs in one
// transaction. New proxies are appended after the current last position
// with a null last_used_at.
func (s *ProxyService) ReplaceProxies(ctx context.Context, added []string, removedIDs []string) ([]*docingest.ProxyRecord, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, id := range removedIDs {
		if _, err := tx.ExecContext(ctx, "DELETE FROM proxies WHERE id = ?", id); err != nil {
			return nil, err
		}
	}

	var next int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM proxies").Scan(&next); err != nil {
		return nil, err
	}

	inserted := make([]*docingest.ProxyRecord, 0, len(added))
	for _, u := range added {
		p := &docingest.ProxyRecord{ID: uuid.New().String(), URL: u, Position: next}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO proxies (id, url, last_used_at, position) VALUES (?, ?, NULL, ?)
		`, p.ID, p.URL, p.Position); err != nil {
			if isUniqueViolation(err) {
				return nil, docingest.Errorf(docingest.ECONFLICT, "proxy %s already exists", u)
			}
			return nil, err
		}
		inserted = append(inserted, p)
		next++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inserted, nil
}

// TouchProxy stamps a proxy's last-used time.
func (s *ProxyService) TouchProxy(ctx context.Context, id string, usedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, "UPDATE proxies SET last_used_at = ? WHERE id = ?", formatTime(usedAt), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return docingest.Errorf(docingest.ENOTFOUND, "proxy not found")
	}
	return nil
}
