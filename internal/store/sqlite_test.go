package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siyada/leadgen-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetSession(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "user-1", "AI engineers in SF", "We sell GPU clusters")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, model.SessionStatusPending, sess.Status)

	got, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "AI engineers in SF", got.RawQuery)
	assert.Equal(t, "We sell GPU clusters", got.SenderContext)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, 0, got.ResultCount)
	assert.Nil(t, got.QueryIntent)
}

func TestSQLite_GetSession_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetSession(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestSQLite_UpdateSessionStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "", "query", "")
	require.NoError(t, err)

	require.NoError(t, st.UpdateSessionStatus(ctx, sess.ID, model.SessionStatusSearching, nil))

	got, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusSearching, got.Status)
	assert.Equal(t, 0, got.ResultCount)

	count := 7
	require.NoError(t, st.UpdateSessionStatus(ctx, sess.ID, model.SessionStatusEnriching, &count))

	got, err = st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusEnriching, got.Status)
	assert.Equal(t, 7, got.ResultCount)
}

func TestSQLite_UpdateSessionStatus_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateSessionStatus(context.Background(), "missing", model.SessionStatusFailed, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestSQLite_SetQueryIntent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "", "query", "")
	require.NoError(t, err)

	intent := []byte(`{"search_queries":["AI engineers San Francisco"],"job_titles":["AI Engineer"],"seniority_levels":[]}`)
	require.NoError(t, st.SetQueryIntent(ctx, sess.ID, intent))

	got, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(intent), string(got.QueryIntent))
}

func TestSQLite_ListSessions(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateSession(ctx, "user-a", "query one", "")
	require.NoError(t, err)
	sessB, err := st.CreateSession(ctx, "user-b", "query two", "")
	require.NoError(t, err)
	require.NoError(t, st.UpdateSessionStatus(ctx, sessB.ID, model.SessionStatusCompleted, nil))

	all, err := st.ListSessions(ctx, SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byUser, err := st.ListSessions(ctx, SessionFilter{UserID: "user-a"})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "query one", byUser[0].RawQuery)

	byStatus, err := st.ListSessions(ctx, SessionFilter{Status: model.SessionStatusCompleted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, sessB.ID, byStatus[0].ID)
}

func TestSQLite_InsertAndListSearchResults(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "", "query", "")
	require.NoError(t, err)

	items := []model.SearchResult{
		{Title: "TechCorp - AI Infrastructure", URL: "https://techcorp.com", Snippet: "ML platform", Domain: "techcorp.com", Position: 1, RawData: []byte(`{"position":1}`)},
		{Title: "DataIO", URL: "https://dataio.com/about", Snippet: "Data tools", Domain: "dataio.com", Position: 2},
	}

	inserted, err := st.InsertSearchResults(ctx, sess.ID, items)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.NotEmpty(t, inserted[0].ID)
	assert.Equal(t, sess.ID, inserted[0].SessionID)

	listed, err := st.ListSearchResults(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "techcorp.com", listed[0].Domain)
	assert.Equal(t, 1, listed[0].Position)
	assert.JSONEq(t, `{"position":1}`, string(listed[0].RawData))
	assert.Nil(t, listed[1].RawData)
}

func TestSQLite_InsertSearchResults_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	out, err := st.InsertSearchResults(context.Background(), "sess", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSQLite_InsertAndListLeads(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "", "query", "")
	require.NoError(t, err)

	srs, err := st.InsertSearchResults(ctx, sess.ID, []model.SearchResult{
		{Title: "TechCorp", URL: "https://techcorp.com", Domain: "techcorp.com", Position: 1},
	})
	require.NoError(t, err)

	leads := []model.Lead{
		{
			SessionID:      sess.ID,
			SearchResultID: srs[0].ID,
			FirstName:      "Alice",
			LastName:       "Nguyen",
			Email:          "alice@techcorp.com",
			EmailStatus:    "verified",
			JobTitle:       "AI Engineer",
			CompanyName:    "TechCorp",
			CompanyDomain:  "techcorp.com",
			ScrapedContext: "TechCorp builds ML infrastructure.",
			IsSelected:     true,
		},
		{
			SessionID:     sess.ID,
			CompanyName:   "DataIO",
			CompanyDomain: "dataio.com",
			IsSelected:    true,
		},
	}

	inserted, err := st.InsertLeads(ctx, leads)
	require.NoError(t, err)
	require.Len(t, inserted, 2)

	listed, err := st.ListLeads(ctx, sess.ID, false)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Alice", listed[0].FirstName)
	assert.Equal(t, srs[0].ID, listed[0].SearchResultID)
	assert.True(t, listed[0].IsSelected)
	assert.Empty(t, listed[1].SearchResultID)

	n, err := st.CountLeads(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLite_ListLeads_SelectedOnly(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "", "query", "")
	require.NoError(t, err)

	inserted, err := st.InsertLeads(ctx, []model.Lead{
		{SessionID: sess.ID, CompanyName: "A", IsSelected: true},
		{SessionID: sess.ID, CompanyName: "B", IsSelected: true},
	})
	require.NoError(t, err)

	require.NoError(t, st.SetLeadSelection(ctx, inserted[1].ID, false))

	selected, err := st.ListLeads(ctx, sess.ID, true)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "A", selected[0].CompanyName)

	all, err := st.ListLeads(ctx, sess.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_UpdateLeadEmails_Batch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "", "query", "")
	require.NoError(t, err)

	inserted, err := st.InsertLeads(ctx, []model.Lead{
		{SessionID: sess.ID, CompanyName: "A", IsSelected: true},
		{SessionID: sess.ID, CompanyName: "B", IsSelected: true},
	})
	require.NoError(t, err)

	updates := []model.LeadEmailUpdate{
		{LeadID: inserted[0].ID, EmailSubject: "Hello A", PersonalizedEmail: "Body A", SuggestedApproach: "Direct"},
		{LeadID: inserted[1].ID, EmailSubject: "Hello B", PersonalizedEmail: "Body B", SuggestedApproach: "Warm intro"},
	}
	require.NoError(t, st.UpdateLeadEmails(ctx, updates))

	got, err := st.GetLead(ctx, inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello A", got.EmailSubject)
	assert.Equal(t, "Body A", got.PersonalizedEmail)
	assert.Equal(t, "Direct", got.SuggestedApproach)
}

func TestSQLite_UpdateLeadEmail_Manual(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "", "query", "")
	require.NoError(t, err)

	inserted, err := st.InsertLeads(ctx, []model.Lead{
		{SessionID: sess.ID, CompanyName: "A", IsSelected: true},
	})
	require.NoError(t, err)

	require.NoError(t, st.UpdateLeadEmail(ctx, inserted[0].ID, "Edited subject", "Edited body", "Edited approach"))

	got, err := st.GetLead(ctx, inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited subject", got.EmailSubject)
	assert.Equal(t, "Edited body", got.PersonalizedEmail)
}

func TestSQLite_SetLeadSelection_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SetLeadSelection(context.Background(), "missing", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead not found")
}
