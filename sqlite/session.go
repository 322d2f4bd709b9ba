package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docingest.SessionService = (*SessionService)(nil)

// SessionService implements docingest.SessionService using SQLite.
type SessionService struct {
	db *DB
}

// NewSessionService creates a new SessionService.
func NewSessionService(db *DB) *SessionService {
	return &SessionService{db: db}
}

const sessionColumns = `id, name, prefix_path, anti_paths, anti_keywords, technology,
	max_concurrency, vector_store, created_at, updated_at`

// CreateSession creates a new session.
func (s *SessionService) CreateSession(ctx context.Context, session *docingest.CrawlSession) error {
	if err := session.Validate(); err != nil {
		return err
	}

	tech, vs, err := marshalSessionConfig(session)
	if err != nil {
		return err
	}

	session.ID = uuid.New().String()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.Name, session.PrefixPath,
		joinLines(session.AntiPaths), joinLines(session.AntiKeywords), tech,
		session.MaxConcurrency, vs, formatTime(session.CreatedAt), formatTime(session.UpdatedAt))
	if isUniqueViolation(err) {
		return docingest.Errorf(docingest.ECONFLICT, "session %q already exists", session.Name)
	}
	return err
}

// FindSessionByID retrieves a session by ID.
func (s *SessionService) FindSessionByID(ctx context.Context, id string) (*docingest.CrawlSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, docingest.Errorf(docingest.ENOTFOUND, "session not found")
	}
	return session, err
}

// FindSessions retrieves sessions matching the filter.
func (s *SessionService) FindSessions(ctx context.Context, filter docingest.SessionFilter) ([]*docingest.CrawlSession, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + sessionColumns + " FROM sessions WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Name != nil {
		query.WriteString(" AND name = ?")
		args = append(args, *filter.Name)
	}

	query.WriteString(" ORDER BY created_at DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*docingest.CrawlSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// UpdateSession updates an existing session.
func (s *SessionService) UpdateSession(ctx context.Context, id string, upd docingest.SessionUpdate) (*docingest.CrawlSession, error) {
	session, err := s.FindSessionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.AntiPaths != nil {
		session.AntiPaths = *upd.AntiPaths
	}
	if upd.AntiKeywords != nil {
		session.AntiKeywords = *upd.AntiKeywords
	}
	if upd.MaxConcurrency != nil {
		session.MaxConcurrency = *upd.MaxConcurrency
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	session.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions
		SET anti_paths = ?, anti_keywords = ?, max_concurrency = ?, updated_at = ?
		WHERE id = ?
	`, joinLines(session.AntiPaths), joinLines(session.AntiKeywords), session.MaxConcurrency,
		formatTime(session.UpdatedAt), id)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession permanently removes a session. Its crawl URLs are removed
// by the foreign key cascade.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return docingest.Errorf(docingest.ENOTFOUND, "session not found")
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*docingest.CrawlSession, error) {
	var session docingest.CrawlSession
	var antiPaths, antiKeywords, tech, vs, createdAt, updatedAt string

	if err := row.Scan(&session.ID, &session.Name, &session.PrefixPath, &antiPaths, &antiKeywords,
		&tech, &session.MaxConcurrency, &vs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	session.AntiPaths = splitLines(antiPaths)
	session.AntiKeywords = splitLines(antiKeywords)

	if err := json.Unmarshal([]byte(tech), &session.Technology); err != nil {
		return nil, fmt.Errorf("failed to decode technology: %w", err)
	}
	if err := json.Unmarshal([]byte(vs), &session.VectorStore); err != nil {
		return nil, fmt.Errorf("failed to decode vector store config: %w", err)
	}

	var err error
	if session.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if session.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	return &session, nil
}

func marshalSessionConfig(session *docingest.CrawlSession) (tech, vs string, err error) {
	techJSON, err := json.Marshal(session.Technology)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode technology: %w", err)
	}
	vsJSON, err := json.Marshal(session.VectorStore)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode vector store config: %w", err)
	}
	return string(techJSON), string(vsJSON), nil
}
