package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/siyada/leadgen-cli/internal/model"
	"github.com/siyada/leadgen-cli/pkg/anthropic"
)

const emailSystemPrompt = `You write short, personalized B2B outreach emails. Use the recipient profile and any page context to personalize; use the sender context to describe what the sender offers. When the profile has no contact name, address the organization instead. Keep the body under 150 words, no placeholders, no markdown. Respond with a valid JSON object and nothing else:
{"subject": "<subject line>", "body": "<email body>", "suggested_approach": "<one sentence on why this angle fits the recipient>"}`

const emailUserPrompt = `Recipient profile:
%s

Original search query: %s

Sender context: %s`

// generateEmails drafts a personalized email for every selected lead in the
// session and commits all updates in one batch. Drafting failures are
// isolated per lead; a lead whose draft fails keeps empty email fields.
func (p *Pipeline) generateEmails(ctx context.Context, sessionID, rawQuery, senderContext string) model.StageSummary {
	log := zap.L().With(zap.String("session_id", sessionID))

	leads, err := p.store.ListLeads(ctx, sessionID, true)
	if err != nil {
		log.Warn("pipeline: list leads for drafting", zap.Error(err))
		return model.StageSummary{}
	}

	summary, updates := p.draftAll(ctx, leads, rawQuery, senderContext)

	if len(updates) > 0 {
		if err := p.store.UpdateLeadEmails(ctx, updates); err != nil {
			log.Warn("pipeline: commit email batch", zap.Error(err))
			summary.Failed += len(updates)
			summary.Succeeded -= len(updates)
		}
	}

	log.Info("pipeline: email drafting complete",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary
}

// RegenerateEmails re-drafts emails for every selected lead of an existing
// session, on demand. Unlike the pipeline stage it returns an error, because
// it runs inside a request cycle with a caller waiting on the outcome.
func (p *Pipeline) RegenerateEmails(ctx context.Context, sessionID string) (*model.RegenSummary, error) {
	session, err := p.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load session")
	}

	leads, err := p.store.ListLeads(ctx, sessionID, true)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list leads")
	}

	summary, updates := p.draftAll(ctx, leads, session.RawQuery, session.SenderContext)

	if len(updates) > 0 {
		if err := p.store.UpdateLeadEmails(ctx, updates); err != nil {
			return nil, eris.Wrap(err, "pipeline: commit email batch")
		}
	}

	return &model.RegenSummary{
		SessionID:    sessionID,
		TotalLeads:   summary.Attempted,
		SuccessCount: summary.Succeeded,
		ErrorCount:   summary.Failed,
	}, nil
}

// draftAll runs the drafting loop over the given leads and collects the
// successful drafts as a pending update batch.
func (p *Pipeline) draftAll(ctx context.Context, leads []model.Lead, rawQuery, senderContext string) (model.StageSummary, []model.LeadEmailUpdate) {
	summary := model.StageSummary{Attempted: len(leads)}
	updates := make([]model.LeadEmailUpdate, 0, len(leads))

	for i := range leads {
		draft, err := p.draftEmail(ctx, &leads[i], rawQuery, senderContext)
		if err != nil {
			summary.Failed++
			zap.L().Warn("pipeline: email draft failed",
				zap.String("lead_id", leads[i].ID),
				zap.Error(err),
			)
			continue
		}
		summary.Succeeded++
		updates = append(updates, model.LeadEmailUpdate{
			LeadID:            leads[i].ID,
			EmailSubject:      draft.Subject,
			PersonalizedEmail: draft.Body,
			SuggestedApproach: draft.SuggestedApproach,
		})
	}
	return summary, updates
}

func (p *Pipeline) draftEmail(ctx context.Context, lead *model.Lead, rawQuery, senderContext string) (*model.EmailDraft, error) {
	profile, err := json.MarshalIndent(lead.Profile(), "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: marshal profile")
	}
	if senderContext == "" {
		senderContext = "not provided"
	}

	resp, err := p.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.Model,
		MaxTokens: p.cfg.Anthropic.MaxTokens,
		System:    emailSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(emailUserPrompt, profile, rawQuery, senderContext)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: draft email")
	}

	var draft model.EmailDraft
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &draft); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse draft")
	}
	if draft.Subject == "" || draft.Body == "" {
		return nil, eris.New("pipeline: draft missing subject or body")
	}
	return &draft, nil
}
