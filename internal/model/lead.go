package model

import "time"

// Lead is one persisted contact/organization record, the unit of pipeline
// output. Leads produced by fallback synthesis carry empty identity fields
// and populated organization fields; that is a valid degraded outcome.
type Lead struct {
	ID             string `json:"id"`
	SessionID      string `json:"session_id"`
	SearchResultID string `json:"search_result_id,omitempty"`

	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	EmailStatus string `json:"email_status,omitempty"`
	Phone       string `json:"phone,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	Headline    string `json:"headline,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`

	CompanyName        string `json:"company_name,omitempty"`
	CompanyDomain      string `json:"company_domain,omitempty"`
	CompanyIndustry    string `json:"company_industry,omitempty"`
	CompanySize        string `json:"company_size,omitempty"`
	CompanyLinkedInURL string `json:"company_linkedin_url,omitempty"`

	ScrapedContext string `json:"scraped_context,omitempty"`

	EmailSubject      string `json:"email_subject,omitempty"`
	PersonalizedEmail string `json:"personalized_email,omitempty"`
	SuggestedApproach string `json:"suggested_approach,omitempty"`

	IsSelected bool      `json:"is_selected"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Profile flattens the lead into the shape consumed by email drafting.
func (l *Lead) Profile() LeadProfile {
	return LeadProfile{
		FirstName:       l.FirstName,
		LastName:        l.LastName,
		JobTitle:        l.JobTitle,
		CompanyName:     l.CompanyName,
		CompanyIndustry: l.CompanyIndustry,
		City:            l.City,
		State:           l.State,
		Country:         l.Country,
		LinkedInURL:     l.LinkedInURL,
		ScrapedContext:  l.ScrapedContext,
	}
}

// LeadProfile is the flattened contact profile passed to the email drafter.
type LeadProfile struct {
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	JobTitle        string `json:"job_title,omitempty"`
	CompanyName     string `json:"company_name,omitempty"`
	CompanyIndustry string `json:"company_industry,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	Country         string `json:"country,omitempty"`
	LinkedInURL     string `json:"linkedin_url,omitempty"`
	ScrapedContext  string `json:"scraped_context,omitempty"`
}

// EmailDraft is the output of one drafting call.
type EmailDraft struct {
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	SuggestedApproach string `json:"suggested_approach"`
}

// LeadEmailUpdate carries generated email fields for one lead; updates are
// committed in a single batch after the drafting loop.
type LeadEmailUpdate struct {
	LeadID            string `json:"lead_id"`
	EmailSubject      string `json:"email_subject"`
	PersonalizedEmail string `json:"personalized_email"`
	SuggestedApproach string `json:"suggested_approach"`
}

// StageSummary tallies per-item outcomes within one pipeline stage.
type StageSummary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RunSummary is the structured outcome of one pipeline run. The pipeline
// executes detached from any request cycle; the summary exists for logging
// and for callers that run it synchronously (CLI, tests).
type RunSummary struct {
	SessionID     string        `json:"session_id"`
	Status        SessionStatus `json:"status"`
	SearchResults int           `json:"search_results"`
	Scraped       StageSummary  `json:"scraped"`
	Domains       StageSummary  `json:"domains"`
	Contacts      int           `json:"contacts"`
	Fallback      bool          `json:"fallback"`
	Emails        StageSummary  `json:"emails"`
}

// RegenSummary reports the outcome of on-demand email regeneration.
type RegenSummary struct {
	SessionID    string `json:"session_id"`
	TotalLeads   int    `json:"total_leads"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
}
