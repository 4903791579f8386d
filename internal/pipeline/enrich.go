package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/siyada/leadgen-cli/internal/model"
	"github.com/siyada/leadgen-cli/pkg/apollo"
)

// enrichDomains looks up contacts for every distinct search-result domain
// and builds lead records, joining each contact back to the first search
// result from its domain and that result's scraped context. Domains fail
// independently. When no domain yields a single contact, an organization-only
// fallback lead is synthesized for every search result so the run still
// produces reviewable output.
func (p *Pipeline) enrichDomains(
	ctx context.Context,
	sessionID string,
	intent model.QueryIntent,
	results []model.SearchResult,
	contexts map[string]string,
) ([]model.Lead, model.StageSummary, bool) {
	log := zap.L().With(zap.String("session_id", sessionID))

	domains := distinctDomains(results, p.cfg.Pipeline.MaxDomains)
	summary := model.StageSummary{Attempted: len(domains)}

	// First search result per domain, for the lead join.
	firstResult := make(map[string]*model.SearchResult, len(domains))
	for i := range results {
		d := results[i].Domain
		if d == "" {
			continue
		}
		if _, ok := firstResult[d]; !ok {
			firstResult[d] = &results[i]
		}
	}

	var leads []model.Lead
	for _, domain := range domains {
		people, err := p.enrich.SearchPeople(ctx, apollo.PeopleSearchRequest{
			Domain:        domain,
			TitleKeywords: intent.JobTitles,
			Seniorities:   intent.SeniorityLevels,
			PerPage:       p.cfg.Apollo.PerPage,
		})
		if err != nil {
			summary.Failed++
			log.Warn("pipeline: domain enrichment failed",
				zap.String("domain", domain),
				zap.Error(err),
			)
			continue
		}
		summary.Succeeded++

		origin := firstResult[domain]
		for _, person := range people {
			leads = append(leads, personToLead(sessionID, person, origin, contexts))
		}
	}

	if len(leads) > 0 {
		log.Info("pipeline: enrichment complete",
			zap.Int("domains", len(domains)),
			zap.Int("contacts", len(leads)),
		)
		return leads, summary, false
	}

	// Fallback: one organization-only lead per persisted search result, built
	// from the result itself. Every result produces a lead, including those
	// beyond the domain cap or without a parseable domain, so the run never
	// completes with fewer reviewable leads than results. Identity fields
	// stay empty; email drafting will address the organization instead of a
	// person.
	for i := range results {
		r := &results[i]
		leads = append(leads, model.Lead{
			SessionID:      sessionID,
			SearchResultID: r.ID,
			CompanyName:    r.Title,
			CompanyDomain:  r.Domain,
			ScrapedContext: contexts[r.URL],
			IsSelected:     true,
		})
	}

	log.Info("pipeline: enrichment yielded no contacts, synthesized fallback leads",
		zap.Int("results", len(results)),
		zap.Int("fallback_leads", len(leads)),
	)
	return leads, summary, true
}

// distinctDomains returns the unique, non-empty domains of the result set in
// first-seen order, capped at max. First-seen order follows result position,
// so the cap keeps the domains the search engine ranked highest.
func distinctDomains(results []model.SearchResult, max int) []string {
	seen := make(map[string]bool)
	var domains []string
	for _, r := range results {
		if r.Domain == "" || seen[r.Domain] {
			continue
		}
		seen[r.Domain] = true
		domains = append(domains, r.Domain)
		if max > 0 && len(domains) == max {
			break
		}
	}
	return domains
}

func personToLead(sessionID string, person apollo.Person, origin *model.SearchResult, contexts map[string]string) model.Lead {
	lead := model.Lead{
		SessionID:          sessionID,
		FirstName:          person.FirstName,
		LastName:           person.LastName,
		Email:              person.Email,
		EmailStatus:        person.EmailStatus,
		Phone:              person.Phone,
		JobTitle:           person.Title,
		Headline:           person.Headline,
		LinkedInURL:        person.LinkedInURL,
		City:               person.City,
		State:              person.State,
		Country:            person.Country,
		CompanyName:        person.OrganizationName,
		CompanyDomain:      person.OrganizationDomain,
		CompanyIndustry:    person.OrganizationIndustry,
		CompanySize:        person.OrganizationSize,
		CompanyLinkedInURL: person.OrganizationLinkedIn,
		IsSelected:         true,
	}
	if origin != nil {
		lead.SearchResultID = origin.ID
		lead.ScrapedContext = contexts[origin.URL]
	}
	return lead
}
