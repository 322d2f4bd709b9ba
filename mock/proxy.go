package mock

import (
	"context"
	"time"

	"github.com/fwojciec/docingest"
)

var _ docingest.ProxyService = (*ProxyService)(nil)

// ProxyService is a mock implementation of docingest.ProxyService.
type ProxyService struct {
	FindProxiesFn    func(ctx context.Context) ([]*docingest.ProxyRecord, error)
	ReplaceProxiesFn func(ctx context.Context, added []string, removedIDs []string) ([]*docingest.ProxyRecord, error)
	TouchProxyFn     func(ctx context.Context, id string, usedAt time.Time) error
}

func (s *ProxyService) FindProxies(ctx context.Context) ([]*docingest.ProxyRecord, error) {
	return s.FindProxiesFn(ctx)
}

func (s *ProxyService) ReplaceProxies(ctx context.Context, added []string, removedIDs []string) ([]*docingest.ProxyRecord, error) {
	return s.ReplaceProxiesFn(ctx, added, removedIDs)
}

func (s *ProxyService) TouchProxy(ctx context.Context, id string, usedAt time.Time) error {
	return s.TouchProxyFn(ctx, id, usedAt)
}

var _ docingest.ProxyListSource = (*ProxyListSource)(nil)

// ProxyListSource is a mock implementation of docingest.ProxyListSource.
type ProxyListSource struct {
	FetchProxyListFn func(ctx context.Context) ([]string, error)
}

func (s *ProxyListSource) FetchProxyList(ctx context.Context) ([]string, error) {
	return s.FetchProxyListFn(ctx)
}
