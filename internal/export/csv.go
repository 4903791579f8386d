// Package export renders session leads as a HubSpot-ready CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/siyada/leadgen-cli/internal/model"
)

// descriptionLimit caps the scraped-context portion of the Description
// column; HubSpot truncates long property values on import anyway.
const descriptionLimit = 500

// hubspotRow maps a lead onto HubSpot's contact import columns.
type hubspotRow struct {
	FirstName          string `csv:"First Name"`
	LastName           string `csv:"Last Name"`
	Email              string `csv:"Email"`
	Phone              string `csv:"Phone Number"`
	JobTitle           string `csv:"Job Title"`
	CompanyName        string `csv:"Company Name"`
	CompanyDomain      string `csv:"Company Domain Name"`
	WebsiteURL         string `csv:"Website URL"`
	Description        string `csv:"Description"`
	Industry           string `csv:"Industry"`
	StreetAddress      string `csv:"Street Address"`
	City               string `csv:"City"`
	State              string `csv:"State/Region"`
	Country            string `csv:"Country/Region"`
	Employees          string `csv:"Number of Employees"`
	LinkedInURL        string `csv:"LinkedIn URL"`
	CompanyLinkedInURL string `csv:"Company LinkedIn URL"`
	PersonalizedEmail  string `csv:"Personalized Email Draft"`
	SuggestedApproach  string `csv:"Suggested Approach"`
}

// GenerateCSV renders the leads as UTF-8 BOM prefixed CSV bytes. The BOM
// keeps Excel from mangling non-ASCII names on double-click open.
func GenerateCSV(leads []model.Lead) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0xef, 0xbb, 0xbf})

	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)

	for i := range leads {
		if err := enc.Encode(rowFromLead(&leads[i])); err != nil {
			return nil, eris.Wrap(err, "export: encode row")
		}
	}
	// Zero leads still produces a header-only file.
	if len(leads) == 0 {
		if err := enc.EncodeHeader(hubspotRow{}); err != nil {
			return nil, eris.Wrap(err, "export: encode header")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush")
	}
	return buf.Bytes(), nil
}

// Filename builds the download name: leadgen_leads_{sid8}_{yyyymmdd}.csv.
func Filename(sessionID string, now time.Time) string {
	sid := sessionID
	if len(sid) > 8 {
		sid = sid[:8]
	}
	return fmt.Sprintf("leadgen_leads_%s_%s.csv", sid, now.UTC().Format("20060102"))
}

func rowFromLead(lead *model.Lead) hubspotRow {
	row := hubspotRow{
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		JobTitle:           lead.JobTitle,
		CompanyName:        lead.CompanyName,
		CompanyDomain:      lead.CompanyDomain,
		Description:        description(lead),
		Industry:           lead.CompanyIndustry,
		City:               lead.City,
		State:              lead.State,
		Country:            lead.Country,
		Employees:          lead.CompanySize,
		LinkedInURL:        lead.LinkedInURL,
		CompanyLinkedInURL: lead.CompanyLinkedInURL,
		PersonalizedEmail:  lead.PersonalizedEmail,
		SuggestedApproach:  lead.SuggestedApproach,
	}
	if lead.CompanyDomain != "" {
		row.WebsiteURL = "https://" + lead.CompanyDomain
	}
	return row
}

// description joins the contact headline with a bounded slice of scraped
// page context.
func description(lead *model.Lead) string {
	var parts []string
	if lead.Headline != "" {
		parts = append(parts, lead.Headline)
	}
	if ctx := lead.ScrapedContext; ctx != "" {
		if len(ctx) > descriptionLimit {
			ctx = ctx[:descriptionLimit]
		}
		parts = append(parts, ctx)
	}
	return strings.Join(parts, " | ")
}
