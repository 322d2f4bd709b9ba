package main

import (
	"fmt"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
)

// Run executes the proxies refresh command.
func (c *ProxiesRefreshCmd) Run(deps *Dependencies) error {
	if deps.ProxySource == nil {
		fmt.Fprintln(deps.Stderr, "error: no proxy list URL. Set DOCINGEST_PROXY_LIST or pass --proxy-list.")
		return docingest.Errorf(docingest.EINVALID, "proxy list URL required")
	}

	pool := crawl.NewProxyPool(deps.Proxies, deps.ProxySource)
	if err := pool.Load(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	result, err := pool.Refresh(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Refreshed proxies: %d added, %d removed, %d total\n", result.Added, result.Removed, result.Total)
	return nil
}

// Run executes the proxies list command.
func (c *ProxiesListCmd) Run(deps *Dependencies) error {
	pool := crawl.NewProxyPool(deps.Proxies, nil)
	if err := pool.Load(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	if pool.Len() == 0 {
		fmt.Fprintln(deps.Stdout, "No proxies. Use 'docingest proxies refresh' to load the proxy list.")
		return nil
	}

	for _, p := range pool.Proxies() {
		used := "never"
		if p.LastUsedAt != nil {
			used = p.LastUsedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  last used %s\n", p.ID, p.URL, used)
	}
	return nil
}
