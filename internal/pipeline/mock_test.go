package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/siyada/leadgen-cli/internal/config"
	"github.com/siyada/leadgen-cli/internal/scrape"
	"github.com/siyada/leadgen-cli/internal/store"
	"github.com/siyada/leadgen-cli/pkg/anthropic"
	"github.com/siyada/leadgen-cli/pkg/apollo"
	"github.com/siyada/leadgen-cli/pkg/serper"
)

// --- Anthropic Mock ---

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Serper Mock ---

type mockSearchClient struct {
	mock.Mock
}

func (m *mockSearchClient) Search(ctx context.Context, query string, num int) (*serper.SearchResponse, error) {
	args := m.Called(ctx, query, num)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*serper.SearchResponse), args.Error(1)
}

// --- Apollo Mock ---

type mockEnrichClient struct {
	mock.Mock
}

func (m *mockEnrichClient) SearchPeople(ctx context.Context, req apollo.PeopleSearchRequest) ([]apollo.Person, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apollo.Person), args.Error(1)
}

// --- Scraper Mock ---

type mockScraper struct {
	mock.Mock
}

func (m *mockScraper) Scrape(ctx context.Context, url string) (*scrape.PageContext, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scrape.PageContext), args.Error(1)
}

// --- Helpers ---

type testDeps struct {
	store   store.Store
	llm     *mockLLMClient
	search  *mockSearchClient
	enrich  *mockEnrichClient
	scraper *mockScraper
}

func newTestPipeline(t *testing.T) (*Pipeline, *testDeps) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	deps := &testDeps{
		store:   st,
		llm:     &mockLLMClient{},
		search:  &mockSearchClient{},
		enrich:  &mockEnrichClient{},
		scraper: &mockScraper{},
	}

	cfg := &config.Config{
		Anthropic: config.AnthropicConfig{Model: "test-model", MaxTokens: 1024},
		Serper:    config.SerperConfig{NumResults: 10},
		Apollo:    config.ApolloConfig{PerPage: 10},
		Scrape:    config.ScrapeConfig{MaxURLs: 15, Concurrency: 3, TimeoutSecs: 5},
		Pipeline:  config.PipelineConfig{MaxDomains: 10},
	}

	return New(cfg, st, deps.llm, deps.search, deps.enrich, deps.scraper), deps
}

// llmText wraps a plain string as a single-text-block message response.
func llmText(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func intentJSON(queries, titles, seniorities []string) string {
	raw, _ := json.Marshal(map[string]any{
		"search_queries":   queries,
		"job_titles":       titles,
		"seniority_levels": seniorities,
	})
	return string(raw)
}

func draftJSON(n int) string {
	return fmt.Sprintf(`{"subject": "Subject %d", "body": "Body %d", "suggested_approach": "Approach %d"}`, n, n, n)
}

func organicResult(title, link, snippet string, pos int) serper.OrganicResult {
	return serper.OrganicResult{Title: title, Link: link, Snippet: snippet, Position: pos}
}
