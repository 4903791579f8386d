package apollo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siyada/leadgen-cli/internal/retry"
)

func TestSearchPeople(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		req         PeopleSearchRequest
		status      int
		response    string
		wantErr     bool
		wantCount   int
		checkPerson func(t *testing.T, p Person)
	}{
		{
			name: "full person record",
			req: PeopleSearchRequest{
				Domain:        "acme.com",
				TitleKeywords: []string{"engineering manager"},
				Seniorities:   []string{"manager", "director"},
				PerPage:       5,
			},
			status: http.StatusOK,
			response: `{"people": [{
				"first_name": "Jane",
				"last_name": "Doe",
				"email": "jane@acme.com",
				"email_status": "verified",
				"title": "VP Engineering",
				"headline": "Building platforms at Acme",
				"linkedin_url": "https://linkedin.com/in/janedoe",
				"city": "Austin",
				"state": "Texas",
				"country": "United States",
				"phone_numbers": [{"sanitized_number": "+15125550100", "raw_number": "(512) 555-0100"}],
				"organization": {
					"name": "Acme Corp",
					"primary_domain": "acme.com",
					"industry": "software",
					"estimated_num_employees": 250,
					"linkedin_url": "https://linkedin.com/company/acme"
				}
			}]}`,
			wantCount: 1,
			checkPerson: func(t *testing.T, p Person) {
				assert.Equal(t, "Jane", p.FirstName)
				assert.Equal(t, "jane@acme.com", p.Email)
				assert.Equal(t, "verified", p.EmailStatus)
				assert.Equal(t, "+15125550100", p.Phone)
				assert.Equal(t, "Acme Corp", p.OrganizationName)
				assert.Equal(t, "acme.com", p.OrganizationDomain)
				assert.Equal(t, "250", p.OrganizationSize)
				assert.Equal(t, "https://linkedin.com/company/acme", p.OrganizationLinkedIn)
			},
		},
		{
			name:      "no people found",
			req:       PeopleSearchRequest{Domain: "empty.com"},
			status:    http.StatusOK,
			response:  `{"people": []}`,
			wantCount: 0,
		},
		{
			name: "string employee count and missing primary domain",
			req:  PeopleSearchRequest{Domain: "widgets.io"},
			status: http.StatusOK,
			response: `{"people": [{
				"first_name": "Sam",
				"last_name": "Lee",
				"phone": "+14155550199",
				"organization": {
					"name": "Widgets",
					"estimated_num_employees": "50",
					"employee_count_range": "11-50"
				}
			}]}`,
			wantCount: 1,
			checkPerson: func(t *testing.T, p Person) {
				assert.Equal(t, "widgets.io", p.OrganizationDomain)
				assert.Equal(t, "50", p.OrganizationSize)
				assert.Equal(t, "+14155550199", p.Phone)
			},
		},
		{
			name:     "rate limited",
			req:      PeopleSearchRequest{Domain: "acme.com"},
			status:   http.StatusTooManyRequests,
			response: `{"error": "rate limit exceeded"}`,
			wantErr:  true,
		},
		{
			name:     "unauthorized",
			req:      PeopleSearchRequest{Domain: "acme.com"},
			status:   http.StatusUnauthorized,
			response: `{"error": "invalid api key"}`,
			wantErr:  true,
		},
		{
			name:     "malformed response",
			req:      PeopleSearchRequest{Domain: "acme.com"},
			status:   http.StatusOK,
			response: `{"people": [`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/v1/mixed_people/search", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

				var payload map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, tt.req.Domain, payload["q_organization_domains"])
				assert.Equal(t, float64(1), payload["page"])
				if len(tt.req.TitleKeywords) > 0 {
					assert.Len(t, payload["person_titles"], len(tt.req.TitleKeywords))
				} else {
					assert.NotContains(t, payload, "person_titles")
				}
				if len(tt.req.Seniorities) > 0 {
					assert.Len(t, payload["person_seniorities"], len(tt.req.Seniorities))
				}

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000),
				WithRetry(retry.Config{MaxAttempts: 1}))
			people, err := client.SearchPeople(context.Background(), tt.req)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, people, tt.wantCount)
			if tt.checkPerson != nil && len(people) > 0 {
				tt.checkPerson(t, people[0])
			}
		})
	}
}

func TestSearchPeopleRequiresDomain(t *testing.T) {
	t.Parallel()

	client := NewClient("test-key")
	_, err := client.SearchPeople(context.Background(), PeopleSearchRequest{})
	require.Error(t, err)
}

func TestDefaultPerPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(10), payload["per_page"])
		w.Write([]byte(`{"people": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000),
		WithRetry(retry.Config{MaxAttempts: 1}))
	_, err := client.SearchPeople(context.Background(), PeopleSearchRequest{Domain: "acme.com"})
	require.NoError(t, err)
}

func TestSearchPeopleDefaultsToSingleAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000))

	_, err := client.SearchPeople(context.Background(), PeopleSearchRequest{Domain: "acme.com"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSearchPeopleRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"people": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000),
		WithRetry(retry.Config{MaxAttempts: 2, InitialBackoff: time.Millisecond}))

	_, err := client.SearchPeople(context.Background(), PeopleSearchRequest{Domain: "acme.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
