package mock

import (
	"context"

	"github.com/fwojciec/docingest"
)

var _ docingest.SessionService = (*SessionService)(nil)

// SessionService is a mock implementation of docingest.SessionService.
type SessionService struct {
	CreateSessionFn   func(ctx context.Context, session *docingest.CrawlSession) error
	FindSessionByIDFn func(ctx context.Context, id string) (*docingest.CrawlSession, error)
	FindSessionsFn    func(ctx context.Context, filter docingest.SessionFilter) ([]*docingest.CrawlSession, error)
	UpdateSessionFn   func(ctx context.Context, id string, upd docingest.SessionUpdate) (*docingest.CrawlSession, error)
	DeleteSessionFn   func(ctx context.Context, id string) error
}

func (s *SessionService) CreateSession(ctx context.Context, session *docingest.CrawlSession) error {
	return s.CreateSessionFn(ctx, session)
}

func (s *SessionService) FindSessionByID(ctx context.Context, id string) (*docingest.CrawlSession, error) {
	return s.FindSessionByIDFn(ctx, id)
}

func (s *SessionService) FindSessions(ctx context.Context, filter docingest.SessionFilter) ([]*docingest.CrawlSession, error) {
	return s.FindSessionsFn(ctx, filter)
}

func (s *SessionService) UpdateSession(ctx context.Context, id string, upd docingest.SessionUpdate) (*docingest.CrawlSession, error) {
	return s.UpdateSessionFn(ctx, id, upd)
}

func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	return s.DeleteSessionFn(ctx, id)
}
