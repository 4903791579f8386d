// Package apollo provides a client for the Apollo.io people search API.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/siyada/leadgen-cli/internal/retry"
)

const (
	defaultBaseURL = "https://api.apollo.io"
	searchPath     = "/api/v1/mixed_people/search"
)

// Client performs people searches against the Apollo API.
type Client interface {
	// SearchPeople returns candidate contacts at the given organization
	// domain, optionally filtered by title keywords and seniority tags.
	SearchPeople(ctx context.Context, req PeopleSearchRequest) ([]Person, error)
}

// PeopleSearchRequest specifies one people search.
type PeopleSearchRequest struct {
	Domain        string
	TitleKeywords []string
	Seniorities   []string // senior, manager, director, vp, c_suite, ...
	PerPage       int
}

// Person is a flattened contact record from an Apollo search.
type Person struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	EmailStatus          string `json:"email_status"`
	Phone                string `json:"phone"`
	Title                string `json:"title"`
	Headline             string `json:"headline"`
	LinkedInURL          string `json:"linkedin_url"`
	City                 string `json:"city"`
	State                string `json:"state"`
	Country              string `json:"country"`
	OrganizationName     string `json:"organization_name"`
	OrganizationDomain   string `json:"organization_domain"`
	OrganizationIndustry string `json:"organization_industry"`
	OrganizationSize     string `json:"organization_size"`
	OrganizationLinkedIn string `json:"organization_linkedin_url"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the outbound request rate in requests per second.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithRetry enables retrying transient failures with the given settings.
// Without it every call makes a single attempt.
func WithRetry(cfg retry.Config) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   retry.Config
}

// NewClient creates an Apollo API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		retry:   retry.SingleAttempt(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wire types for the Apollo response

type searchResponse struct {
	People []wirePerson `json:"people"`
}

type wirePerson struct {
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	Email        string           `json:"email"`
	EmailStatus  string           `json:"email_status"`
	Phone        string           `json:"phone"`
	Title        string           `json:"title"`
	Headline     string           `json:"headline"`
	LinkedInURL  string           `json:"linkedin_url"`
	City         string           `json:"city"`
	State        string           `json:"state"`
	Country      string           `json:"country"`
	PhoneNumbers []wirePhone      `json:"phone_numbers"`
	Organization wireOrganization `json:"organization"`
}

type wirePhone struct {
	SanitizedNumber string `json:"sanitized_number"`
	RawNumber       string `json:"raw_number"`
}

type wireOrganization struct {
	Name               string          `json:"name"`
	PrimaryDomain      string          `json:"primary_domain"`
	Industry           string          `json:"industry"`
	EstimatedEmployees json.RawMessage `json:"estimated_num_employees"`
	EmployeeCountRange string          `json:"employee_count_range"`
	LinkedInURL        string          `json:"linkedin_url"`
}

func (c *httpClient) SearchPeople(ctx context.Context, req PeopleSearchRequest) ([]Person, error) {
	if req.Domain == "" {
		return nil, eris.New("apollo: domain is required")
	}

	return retry.Do(ctx, c.retry, "apollo.search_people", func(ctx context.Context) ([]Person, error) {
		return c.doSearchPeople(ctx, req)
	})
}

func (c *httpClient) doSearchPeople(ctx context.Context, req PeopleSearchRequest) ([]Person, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "apollo: rate limit wait")
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 10
	}

	payload := map[string]any{
		"q_organization_domains": req.Domain,
		"page":                   1,
		"per_page":               perPage,
	}
	if len(req.TitleKeywords) > 0 {
		payload["person_titles"] = req.TitleKeywords
	}
	if len(req.Seniorities) > 0 {
		payload["person_seniorities"] = req.Seniorities
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "apollo: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("apollo: unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 300))
		if retry.IsTransientStatus(resp.StatusCode) {
			return nil, retry.Transient(err, resp.StatusCode)
		}
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "apollo: unmarshal response")
	}

	people := make([]Person, 0, len(result.People))
	for _, wp := range result.People {
		people = append(people, flattenPerson(wp, req.Domain))
	}
	return people, nil
}

func flattenPerson(wp wirePerson, requestDomain string) Person {
	org := wp.Organization
	domain := org.PrimaryDomain
	if domain == "" {
		domain = requestDomain
	}

	return Person{
		FirstName:            wp.FirstName,
		LastName:             wp.LastName,
		Email:                wp.Email,
		EmailStatus:          wp.EmailStatus,
		Phone:                bestPhone(wp),
		Title:                wp.Title,
		Headline:             wp.Headline,
		LinkedInURL:          wp.LinkedInURL,
		City:                 wp.City,
		State:                wp.State,
		Country:              wp.Country,
		OrganizationName:     org.Name,
		OrganizationDomain:   domain,
		OrganizationIndustry: org.Industry,
		OrganizationSize:     companySize(org),
		OrganizationLinkedIn: org.LinkedInURL,
	}
}

// bestPhone prefers a sanitized number from the phone_numbers list, falling
// back to the person-level phone field.
func bestPhone(wp wirePerson) string {
	for _, pn := range wp.PhoneNumbers {
		if pn.SanitizedNumber != "" {
			return pn.SanitizedNumber
		}
		if pn.RawNumber != "" {
			return pn.RawNumber
		}
	}
	return wp.Phone
}

// companySize reports the employee headcount; estimated_num_employees can
// arrive as a number or a string depending on the plan tier.
func companySize(org wireOrganization) string {
	if len(org.EstimatedEmployees) > 0 {
		var n int
		if err := json.Unmarshal(org.EstimatedEmployees, &n); err == nil && n > 0 {
			return strconv.Itoa(n)
		}
		var s string
		if err := json.Unmarshal(org.EstimatedEmployees, &s); err == nil && s != "" {
			return s
		}
	}
	return org.EmployeeCountRange
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
