// Package fetch implements the live-fetch data source: it resolves a search
// query to candidate pages, downloads them concurrently, and strips them to
// plain text for the model to distill.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"widgetforge/internal/config"
	"widgetforge/internal/logging"
)

const (
	userAgent    = "widgetforge/1.0 (+https://github.com/widgetforge)"
	maxPageBytes = 1 << 20 // per-page download limit
	maxPageText  = 4000    // per-page text kept for the prompt
)

// SearchProvider resolves a free-text query to candidate page URLs.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Fetcher gathers a text corpus for the pipeline's live-fetch phase.
type Fetcher struct {
	logger     *zap.Logger
	httpClient *http.Client
	search     SearchProvider
	maxPages   int
}

// NewFetcher builds a fetcher. A nil logger is replaced with a no-op one.
func NewFetcher(cfg config.FetchConfig, search SearchProvider, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 3
	}
	return &Fetcher{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		search:     search,
		maxPages:   maxPages,
	}
}

// Gather resolves searchQuery to pages and returns their concatenated text
// plus the URLs that actually contributed content. An empty corpus with a nil
// error means nothing useful was found; the caller degrades.
func (f *Fetcher) Gather(ctx context.Context, searchQuery string) (string, []string, error) {
	if f.search == nil {
		return "", nil, fmt.Errorf("no search provider configured")
	}

	urls, err := f.search.Search(ctx, searchQuery, f.maxPages)
	if err != nil {
		return "", nil, fmt.Errorf("search failed: %w", err)
	}
	if len(urls) == 0 {
		logging.Fetch("no results for %q", searchQuery)
		return "", nil, nil
	}
	if len(urls) > f.maxPages {
		urls = urls[:f.maxPages]
	}
	f.logger.Debug("fetching pages", zap.String("query", searchQuery), zap.Int("pages", len(urls)))

	texts := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxPages)
	for i, url := range urls {
		g.Go(func() error {
			text, err := f.fetchPage(gctx, url)
			if err != nil {
				f.logger.Warn("page fetch failed", zap.String("url", url), zap.Error(err))
				return nil // one bad page must not sink the batch
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	var corpus strings.Builder
	var sources []string
	for i, url := range urls {
		if texts[i] == "" {
			continue
		}
		sources = append(sources, url)
		fmt.Fprintf(&corpus, "=== %s ===\n%s\n\n", url, texts[i])
	}
	if corpus.Len() == 0 {
		logging.Fetch("all %d pages failed or were empty for %q", len(urls), searchQuery)
		return "", nil, nil
	}

	logging.Fetch("gathered %d bytes from %d/%d pages for %q", corpus.Len(), len(sources), len(urls), searchQuery)
	return corpus.String(), sources, nil
}

// fetchPage downloads one page and reduces it to bounded plain text.
func (f *Fetcher) fetchPage(ctx context.Context, url string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}

	text := htmlToText(string(body))
	if len(text) > maxPageText {
		text = text[:maxPageText] + "..."
	}

	f.logger.Debug("page fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Int("text", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}
