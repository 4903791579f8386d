package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/siyada/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL DEFAULT '',
	raw_query      TEXT NOT NULL,
	sender_context TEXT NOT NULL DEFAULT '',
	query_intent   TEXT,
	status         TEXT NOT NULL DEFAULT 'pending',
	result_count   INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS search_results (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	title      TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	snippet    TEXT NOT NULL DEFAULT '',
	domain     TEXT NOT NULL DEFAULT '',
	position   INTEGER NOT NULL DEFAULT 0,
	raw_data   TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id                   TEXT PRIMARY KEY,
	session_id           TEXT NOT NULL REFERENCES sessions(id),
	search_result_id     TEXT REFERENCES search_results(id),
	first_name           TEXT NOT NULL DEFAULT '',
	last_name            TEXT NOT NULL DEFAULT '',
	email                TEXT NOT NULL DEFAULT '',
	email_status         TEXT NOT NULL DEFAULT '',
	phone                TEXT NOT NULL DEFAULT '',
	job_title            TEXT NOT NULL DEFAULT '',
	headline             TEXT NOT NULL DEFAULT '',
	linkedin_url         TEXT NOT NULL DEFAULT '',
	city                 TEXT NOT NULL DEFAULT '',
	state                TEXT NOT NULL DEFAULT '',
	country              TEXT NOT NULL DEFAULT '',
	company_name         TEXT NOT NULL DEFAULT '',
	company_domain       TEXT NOT NULL DEFAULT '',
	company_industry     TEXT NOT NULL DEFAULT '',
	company_size         TEXT NOT NULL DEFAULT '',
	company_linkedin_url TEXT NOT NULL DEFAULT '',
	scraped_context      TEXT NOT NULL DEFAULT '',
	email_subject        TEXT NOT NULL DEFAULT '',
	personalized_email   TEXT NOT NULL DEFAULT '',
	suggested_approach   TEXT NOT NULL DEFAULT '',
	is_selected          INTEGER NOT NULL DEFAULT 1,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_search_results_session ON search_results(session_id);
CREATE INDEX IF NOT EXISTS idx_leads_session ON leads(session_id);
CREATE INDEX IF NOT EXISTS idx_leads_selected ON leads(session_id, is_selected);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID, rawQuery, senderContext string) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, raw_query, sender_context, status, result_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		id, userID, rawQuery, senderContext, string(model.SessionStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert session")
	}

	return &model.Session{
		ID:            id,
		UserID:        userID,
		RawQuery:      rawQuery,
		SenderContext: senderContext,
		Status:        model.SessionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, raw_query, sender_context, query_intent, status, result_count, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		sessionID,
	)
	return scanSession(row)
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	query := `SELECT id, user_id, raw_query, sender_context, query_intent, status, result_count, created_at, updated_at
		 FROM sessions WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) UpdateSessionStatus(ctx context.Context, sessionID string, status model.SessionStatus, resultCount *int) error {
	var (
		res sql.Result
		err error
	)
	if resultCount != nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, result_count = ?, updated_at = ? WHERE id = ?`,
			string(status), *resultCount, time.Now().UTC(), sessionID,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), time.Now().UTC(), sessionID,
		)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: update session status %s", sessionID)
	}
	return checkRowsAffected(res, "session", sessionID)
}

func (s *SQLiteStore) SetQueryIntent(ctx context.Context, sessionID string, intent []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET query_intent = ?, updated_at = ? WHERE id = ?`,
		string(intent), time.Now().UTC(), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set query intent %s", sessionID)
	}
	return checkRowsAffected(res, "session", sessionID)
}

func (s *SQLiteStore) InsertSearchResults(ctx context.Context, sessionID string, items []model.SearchResult) ([]model.SearchResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert search results")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.SearchResult, len(items))
	for i, item := range items {
		item.ID = uuid.New().String()
		item.SessionID = sessionID
		item.CreatedAt = now

		_, err := tx.ExecContext(ctx,
			`INSERT INTO search_results (id, session_id, title, url, snippet, domain, position, raw_data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, sessionID, item.Title, item.URL, item.Snippet, item.Domain, item.Position, nullableString(item.RawData), now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert search result")
		}
		out[i] = item
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit search results")
	}
	return out, nil
}

func (s *SQLiteStore) ListSearchResults(ctx context.Context, sessionID string) ([]model.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, title, url, snippet, domain, position, raw_data, created_at
		 FROM search_results WHERE session_id = ? ORDER BY position, created_at`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list search results")
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var sr model.SearchResult
		var raw sql.NullString
		if err := rows.Scan(&sr.ID, &sr.SessionID, &sr.Title, &sr.URL, &sr.Snippet, &sr.Domain, &sr.Position, &raw, &sr.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search result")
		}
		if raw.Valid {
			sr.RawData = []byte(raw.String)
		}
		results = append(results, sr)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list search results iterate")
}

func (s *SQLiteStore) InsertLeads(ctx context.Context, leads []model.Lead) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert leads")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.Lead, len(leads))
	for i, lead := range leads {
		lead.ID = uuid.New().String()
		lead.CreatedAt = now
		lead.UpdatedAt = now

		_, err := tx.ExecContext(ctx,
			`INSERT INTO leads (
				id, session_id, search_result_id,
				first_name, last_name, email, email_status, phone,
				job_title, headline, linkedin_url, city, state, country,
				company_name, company_domain, company_industry, company_size, company_linkedin_url,
				scraped_context, email_subject, personalized_email, suggested_approach,
				is_selected, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			lead.ID, lead.SessionID, nullableID(lead.SearchResultID),
			lead.FirstName, lead.LastName, lead.Email, lead.EmailStatus, lead.Phone,
			lead.JobTitle, lead.Headline, lead.LinkedInURL, lead.City, lead.State, lead.Country,
			lead.CompanyName, lead.CompanyDomain, lead.CompanyIndustry, lead.CompanySize, lead.CompanyLinkedInURL,
			lead.ScrapedContext, lead.EmailSubject, lead.PersonalizedEmail, lead.SuggestedApproach,
			boolToInt(lead.IsSelected), now, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert lead")
		}
		out[i] = lead
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit leads")
	}
	return out, nil
}

const leadColumns = `id, session_id, search_result_id,
	first_name, last_name, email, email_status, phone,
	job_title, headline, linkedin_url, city, state, country,
	company_name, company_domain, company_industry, company_size, company_linkedin_url,
	scraped_context, email_subject, personalized_email, suggested_approach,
	is_selected, created_at, updated_at`

func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, leadID,
	)
	return scanLead(row)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, sessionID string, selectedOnly bool) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE session_id = ?`
	if selectedOnly {
		query += ` AND is_selected = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CountLeads(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE session_id = ?`, sessionID,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count leads")
}

func (s *SQLiteStore) UpdateLeadEmails(ctx context.Context, updates []model.LeadEmailUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin update lead emails")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, u := range updates {
		_, err := tx.ExecContext(ctx,
			`UPDATE leads SET email_subject = ?, personalized_email = ?, suggested_approach = ?, updated_at = ? WHERE id = ?`,
			u.EmailSubject, u.PersonalizedEmail, u.SuggestedApproach, now, u.LeadID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update lead emails %s", u.LeadID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit lead emails")
}

func (s *SQLiteStore) SetLeadSelection(ctx context.Context, leadID string, selected bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET is_selected = ?, updated_at = ? WHERE id = ?`,
		boolToInt(selected), time.Now().UTC(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set lead selection %s", leadID)
	}
	return checkRowsAffected(res, "lead", leadID)
}

func (s *SQLiteStore) UpdateLeadEmail(ctx context.Context, leadID, subject, body, approach string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET email_subject = ?, personalized_email = ?, suggested_approach = ?, updated_at = ? WHERE id = ?`,
		subject, body, approach, time.Now().UTC(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead email %s", leadID)
	}
	return checkRowsAffected(res, "lead", leadID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*model.Session, error) {
	var sess model.Session
	var intent sql.NullString
	var status string

	err := row.Scan(&sess.ID, &sess.UserID, &sess.RawQuery, &sess.SenderContext, &intent, &status, &sess.ResultCount, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("session not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan session")
	}

	sess.Status = model.SessionStatus(status)
	if intent.Valid {
		sess.QueryIntent = []byte(intent.String)
	}
	return &sess, nil
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var searchResultID sql.NullString
	var selected int

	err := row.Scan(
		&l.ID, &l.SessionID, &searchResultID,
		&l.FirstName, &l.LastName, &l.Email, &l.EmailStatus, &l.Phone,
		&l.JobTitle, &l.Headline, &l.LinkedInURL, &l.City, &l.State, &l.Country,
		&l.CompanyName, &l.CompanyDomain, &l.CompanyIndustry, &l.CompanySize, &l.CompanyLinkedInURL,
		&l.ScrapedContext, &l.EmailSubject, &l.PersonalizedEmail, &l.SuggestedApproach,
		&selected, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.New("lead not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	l.SearchResultID = searchResultID.String
	l.IsSelected = selected != 0
	return &l, nil
}
