package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const (
	maxBodyBytes  = 512 * 1024
	excerptLength = 500
)

// HTTPScraper fetches pages via net/http and extracts the title, meta
// description, and a body excerpt with goquery.
type HTTPScraper struct {
	client *http.Client
}

// Option configures an HTTPScraper.
type Option func(*HTTPScraper)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *HTTPScraper) {
		s.client = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPScraper) {
		s.client.Timeout = d
	}
}

// NewHTTPScraper creates an HTTPScraper with sensible defaults.
func NewHTTPScraper(opts ...Option) *HTTPScraper {
	s := &HTTPScraper{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scrape fetches a URL, detects anti-bot blocks, and distills the page.
func (s *HTTPScraper) Scrape(ctx context.Context, targetURL string) (*PageContext, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; LeadgenBot/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}

	if blocked, blockType := detectBlock(resp, body); blocked {
		return nil, eris.Errorf("scrape: blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scrape: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	page := &PageContext{
		URL:         targetURL,
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaDescription(doc),
		Excerpt:     bodyExcerpt(doc),
	}
	if page.Title == "" && page.Description == "" && page.Excerpt == "" {
		return nil, eris.New("scrape: empty page")
	}
	return page, nil
}

func metaDescription(doc *goquery.Document) string {
	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	if desc == "" {
		desc, _ = doc.Find(`meta[property="og:description"]`).First().Attr("content")
	}
	return strings.TrimSpace(desc)
}

var spaceRe = regexp.MustCompile(`\s+`)

// bodyExcerpt returns the first excerptLength characters of the page body
// text, with scripts and navigation chrome removed.
func bodyExcerpt(doc *goquery.Document) string {
	sel := doc.Find("body").Clone()
	sel.Find("script, style, nav, footer, noscript").Remove()

	text := spaceRe.ReplaceAllString(sel.Text(), " ")
	text = strings.TrimSpace(text)
	if len(text) > excerptLength {
		text = text[:excerptLength]
	}
	return text
}
