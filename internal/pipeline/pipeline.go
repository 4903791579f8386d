// Package pipeline orchestrates the lead-generation stages: query
// interpretation, web search, context scraping, contact enrichment, and
// email drafting.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/siyada/leadgen-cli/internal/config"
	"github.com/siyada/leadgen-cli/internal/model"
	"github.com/siyada/leadgen-cli/internal/scrape"
	"github.com/siyada/leadgen-cli/internal/store"
	"github.com/siyada/leadgen-cli/pkg/anthropic"
	"github.com/siyada/leadgen-cli/pkg/apollo"
	"github.com/siyada/leadgen-cli/pkg/serper"
)

// Pipeline orchestrates one session from raw query to drafted emails.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	llm     anthropic.Client
	search  serper.Client
	enrich  apollo.Client
	scraper scrape.Scraper
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	llmClient anthropic.Client,
	searchClient serper.Client,
	enrichClient apollo.Client,
	scraper scrape.Scraper,
) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		llm:     llmClient,
		search:  searchClient,
		enrich:  enrichClient,
		scraper: scraper,
	}
}

// Run executes the full pipeline for one session. It never returns an error:
// runs execute detached from any request cycle, so every failure ends in the
// session being marked failed and reflected in the returned summary. The
// caller learns the outcome by polling the session or inspecting the summary.
func (p *Pipeline) Run(ctx context.Context, sessionID, rawQuery, senderContext string) *model.RunSummary {
	log := zap.L().With(zap.String("session_id", sessionID))
	log.Info("pipeline: starting run", zap.String("query", rawQuery))

	summary := &model.RunSummary{
		SessionID: sessionID,
		Status:    model.SessionStatusFailed,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: panic recovered", zap.Any("panic", r))
			p.setStatus(ctx, sessionID, model.SessionStatusFailed, nil)
			summary.Status = model.SessionStatusFailed
		}
	}()

	fail := func(stage string, err error) *model.RunSummary {
		log.Error("pipeline: run failed", zap.String("stage", stage), zap.Error(err))
		p.setStatus(ctx, sessionID, model.SessionStatusFailed, nil)
		return summary
	}

	// Stage 1: interpret + search.
	p.setStatus(ctx, sessionID, model.SessionStatusSearching, nil)

	intent := p.interpretQuery(ctx, sessionID, rawQuery)

	results, err := p.runSearch(ctx, sessionID, intent)
	if err != nil {
		return fail("search", err)
	}
	summary.SearchResults = len(results)

	// The search count is snapshotted on the session before enrichment so
	// status polls report meaningful progress.
	searchCount := len(results)
	p.setStatus(ctx, sessionID, model.SessionStatusEnriching, &searchCount)

	// Stage 2: scrape page context for the leading results.
	contexts, scrapeSummary := p.scrapeContexts(ctx, results)
	summary.Scraped = scrapeSummary

	// Stage 3: enrich contacts per distinct domain.
	leads, domainSummary, fallback := p.enrichDomains(ctx, sessionID, intent, results, contexts)
	summary.Domains = domainSummary
	summary.Fallback = fallback

	if _, err := p.store.InsertLeads(ctx, leads); err != nil {
		return fail("insert leads", err)
	}
	summary.Contacts = len(leads)

	// Stage 4: draft personalized emails.
	p.setStatus(ctx, sessionID, model.SessionStatusGenerating, nil)

	summary.Emails = p.generateEmails(ctx, sessionID, rawQuery, senderContext)

	// The final count reflects leads, not search results.
	leadCount, err := p.store.CountLeads(ctx, sessionID)
	if err != nil {
		log.Warn("pipeline: count leads", zap.Error(err))
		leadCount = len(leads)
	}
	p.setStatus(ctx, sessionID, model.SessionStatusCompleted, &leadCount)
	summary.Status = model.SessionStatusCompleted

	log.Info("pipeline: run complete",
		zap.Int("search_results", summary.SearchResults),
		zap.Int("leads", leadCount),
		zap.Bool("fallback", fallback),
		zap.Int("emails_drafted", summary.Emails.Succeeded),
	)
	return summary
}

// setStatus advances the session status. Status write failures are logged
// but never abort the run; the pipeline's own progress is authoritative.
func (p *Pipeline) setStatus(ctx context.Context, sessionID string, status model.SessionStatus, resultCount *int) {
	if err := p.store.UpdateSessionStatus(ctx, sessionID, status, resultCount); err != nil {
		zap.L().Warn("pipeline: update status",
			zap.String("session_id", sessionID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
