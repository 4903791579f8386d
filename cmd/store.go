package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/siyada/leadgen-cli/internal/pipeline"
	"github.com/siyada/leadgen-cli/internal/scrape"
	"github.com/siyada/leadgen-cli/internal/store"
	anthropicpkg "github.com/siyada/leadgen-cli/pkg/anthropic"
	"github.com/siyada/leadgen-cli/pkg/apollo"
	"github.com/siyada/leadgen-cli/pkg/serper"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadgen.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// pipelineEnv holds the initialized store, clients, and pipeline shared by
// the run/serve/generate commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store and all API clients, and builds the
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if cfg.Anthropic.Key == "" {
		_ = st.Close()
		return nil, eris.New("anthropic API key is required (LEADGEN_ANTHROPIC_KEY)")
	}
	if cfg.Serper.Key == "" {
		_ = st.Close()
		return nil, eris.New("serper API key is required (LEADGEN_SERPER_KEY)")
	}
	if cfg.Apollo.Key == "" {
		_ = st.Close()
		return nil, eris.New("apollo API key is required (LEADGEN_APOLLO_KEY)")
	}

	llmClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	searchClient := serper.NewClient(cfg.Serper.Key,
		serper.WithBaseURL(cfg.Serper.BaseURL),
		serper.WithRateLimit(cfg.Serper.RatePerSec),
	)
	enrichClient := apollo.NewClient(cfg.Apollo.Key,
		apollo.WithBaseURL(cfg.Apollo.BaseURL),
		apollo.WithRateLimit(cfg.Apollo.RatePerSec),
	)
	scraper := scrape.NewHTTPScraper()

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, llmClient, searchClient, enrichClient, scraper),
	}, nil
}
