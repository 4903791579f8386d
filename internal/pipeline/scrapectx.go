package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/siyada/leadgen-cli/internal/model"
)

// scrapeContexts fetches page context for the leading search results and
// returns a URL-keyed map of distilled snippets. Only the first MaxURLs
// persisted results are scraped; failures are isolated per URL, so a page
// that times out or blocks simply contributes no context.
func (p *Pipeline) scrapeContexts(ctx context.Context, results []model.SearchResult) (map[string]string, model.StageSummary) {
	targets := results
	if max := p.cfg.Scrape.MaxURLs; max > 0 && len(targets) > max {
		targets = targets[:max]
	}

	summary := model.StageSummary{Attempted: len(targets)}
	contexts := make(map[string]string, len(targets))
	if len(targets) == 0 {
		return contexts, summary
	}

	concurrency := p.cfg.Scrape.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := time.Duration(p.cfg.Scrape.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, result := range targets {
		g.Go(func() error {
			scrapeCtx, cancel := context.WithTimeout(gCtx, timeout)
			defer cancel()

			page, err := p.scraper.Scrape(scrapeCtx, result.URL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				zap.L().Debug("pipeline: scrape failed",
					zap.String("url", result.URL),
					zap.Error(err),
				)
				return nil
			}
			summary.Succeeded++
			contexts[result.URL] = page.Context()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("pipeline: scrape complete",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return contexts, summary
}
