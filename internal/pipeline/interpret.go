package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siyada/leadgen-cli/internal/model"
	"github.com/siyada/leadgen-cli/pkg/anthropic"
)

const interpretSystemPrompt = `You translate a prospecting request into structured search intent. Respond with a valid JSON object and nothing else:
{"search_queries": ["<2-4 web search phrases that find companies matching the request>"], "job_titles": ["<job title keywords for the people to contact>"], "seniority_levels": ["<zero or more of: owner, founder, c_suite, partner, vp, head, director, manager, senior, entry, intern>"]}`

const interpretUserPrompt = `Prospecting request: %s`

// interpretQuery asks the LLM to decompose the raw audience query into
// search phrases, title keywords, and seniority tags. Interpretation is
// never fatal: on any failure the raw query itself becomes the single
// search phrase and enrichment proceeds unfiltered.
func (p *Pipeline) interpretQuery(ctx context.Context, sessionID, rawQuery string) model.QueryIntent {
	intent, err := p.callInterpret(ctx, rawQuery)
	if err != nil {
		zap.L().Warn("pipeline: query interpretation failed, using raw query",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		intent = model.QueryIntent{SearchQueries: []string{rawQuery}}
	}

	if len(intent.SearchQueries) == 0 {
		intent.SearchQueries = []string{rawQuery}
	}

	// Snapshot the interpretation on the session for later inspection.
	if raw, err := json.Marshal(intent); err == nil {
		if err := p.store.SetQueryIntent(ctx, sessionID, raw); err != nil {
			zap.L().Warn("pipeline: save query intent",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	return intent
}

func (p *Pipeline) callInterpret(ctx context.Context, rawQuery string) (model.QueryIntent, error) {
	var intent model.QueryIntent

	resp, err := p.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.Model,
		MaxTokens: p.cfg.Anthropic.MaxTokens,
		System:    interpretSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(interpretUserPrompt, rawQuery)},
		},
	})
	if err != nil {
		return intent, err
	}

	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &intent); err != nil {
		return intent, err
	}

	// Drop empty entries the model sometimes emits.
	intent.SearchQueries = compactStrings(intent.SearchQueries)
	intent.JobTitles = compactStrings(intent.JobTitles)
	intent.SeniorityLevels = compactStrings(intent.SeniorityLevels)

	return intent, nil
}

func compactStrings(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
