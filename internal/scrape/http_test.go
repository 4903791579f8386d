package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		headers   map[string]string
		body      string
		wantErr   string
		checkPage func(t *testing.T, p *PageContext)
	}{
		{
			name:   "full page",
			status: http.StatusOK,
			body: `<html><head>
				<title>  Acme Corp - Widgets  </title>
				<meta name="description" content="Acme makes industrial widgets.">
			</head><body>
				<nav>Home About</nav>
				<script>var x = 1;</script>
				<p>Acme Corp has been the leading widget manufacturer since 1985.</p>
				<footer>Copyright Acme</footer>
			</body></html>`,
			checkPage: func(t *testing.T, p *PageContext) {
				assert.Equal(t, "Acme Corp - Widgets", p.Title)
				assert.Equal(t, "Acme makes industrial widgets.", p.Description)
				assert.Contains(t, p.Excerpt, "leading widget manufacturer")
				assert.NotContains(t, p.Excerpt, "var x")
				assert.NotContains(t, p.Excerpt, "Home About")
				assert.NotContains(t, p.Excerpt, "Copyright")
			},
		},
		{
			name:   "og description fallback",
			status: http.StatusOK,
			body: `<html><head>
				<meta property="og:description" content="Social description.">
			</head><body><p>Content here for the excerpt.</p></body></html>`,
			checkPage: func(t *testing.T, p *PageContext) {
				assert.Equal(t, "Social description.", p.Description)
			},
		},
		{
			name:   "long body truncated",
			status: http.StatusOK,
			body:   "<html><body><p>" + strings.Repeat("lead context ", 100) + "</p></body></html>",
			checkPage: func(t *testing.T, p *PageContext) {
				assert.Len(t, p.Excerpt, 500)
			},
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    "<html><body>missing</body></html>",
			wantErr: "status 404",
		},
		{
			name:    "empty page",
			status:  http.StatusOK,
			body:    "<html><head></head><body></body></html>",
			wantErr: "empty page",
		},
		{
			name:    "captcha block",
			status:  http.StatusOK,
			body:    `<html><body>Please complete the reCAPTCHA to continue.</body></html>`,
			wantErr: "blocked (captcha)",
		},
		{
			name:    "cloudflare block",
			status:  http.StatusServiceUnavailable,
			headers: map[string]string{"cf-ray": "abc123"},
			body:    "<html><body>one moment</body></html>",
			wantErr: "blocked (cloudflare)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			scraper := NewHTTPScraper()
			page, err := scraper.Scrape(context.Background(), server.URL)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, server.URL, page.URL)
			if tt.checkPage != nil {
				tt.checkPage(t, page)
			}
		})
	}
}

func TestPageContextJoin(t *testing.T) {
	t.Parallel()

	full := &PageContext{Title: "Acme", Description: "Widgets", Excerpt: "Since 1985."}
	assert.Equal(t, "Acme | Widgets | Since 1985.", full.Context())

	partial := &PageContext{Title: "Acme", Excerpt: "Since 1985."}
	assert.Equal(t, "Acme | Since 1985.", partial.Context())

	empty := &PageContext{}
	assert.Equal(t, "", empty.Context())
}
