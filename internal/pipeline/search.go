package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/siyada/leadgen-cli/internal/model"
)

// runSearch executes every search phrase, deduplicates hits by URL, and
// persists the combined result set. Individual phrase failures are tolerated;
// the stage is fatal only when no phrase yields a single valid result.
func (p *Pipeline) runSearch(ctx context.Context, sessionID string, intent model.QueryIntent) ([]model.SearchResult, error) {
	log := zap.L().With(zap.String("session_id", sessionID))

	seen := make(map[string]bool)
	var items []model.SearchResult
	failedPhrases := 0

	for _, phrase := range intent.SearchQueries {
		resp, err := p.search.Search(ctx, phrase, p.cfg.Serper.NumResults)
		if err != nil {
			failedPhrases++
			log.Warn("pipeline: search phrase failed",
				zap.String("phrase", phrase),
				zap.Error(err),
			)
			continue
		}

		for _, hit := range resp.Organic {
			if hit.Link == "" || seen[hit.Link] {
				continue
			}
			seen[hit.Link] = true

			raw, _ := json.Marshal(hit)
			items = append(items, model.SearchResult{
				SessionID: sessionID,
				Title:     hit.Title,
				URL:       hit.Link,
				Snippet:   hit.Snippet,
				Domain:    hit.Domain(),
				Position:  len(items) + 1,
				RawData:   raw,
			})
		}
	}

	if len(items) == 0 {
		return nil, eris.Errorf("pipeline: no search results across %d phrases (%d failed)",
			len(intent.SearchQueries), failedPhrases)
	}

	persisted, err := p.store.InsertSearchResults(ctx, sessionID, items)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: persist search results")
	}

	log.Info("pipeline: search complete",
		zap.Int("phrases", len(intent.SearchQueries)),
		zap.Int("failed_phrases", failedPhrases),
		zap.Int("results", len(persisted)),
	)
	return persisted, nil
}
