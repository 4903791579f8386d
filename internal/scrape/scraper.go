// Package scrape fetches search-result pages and distills them into short
// context snippets used to personalize outreach emails.
package scrape

import (
	"context"
	"strings"
)

// PageContext is the distilled content of one scraped page.
type PageContext struct {
	URL         string
	Title       string
	Description string
	Excerpt     string
}

// Context joins the distilled fields into a single snippet.
func (p *PageContext) Context() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Title, p.Description, p.Excerpt} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}

// Scraper fetches a single URL and returns its distilled content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*PageContext, error)
}
