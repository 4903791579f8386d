package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/siyada/leadgen-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id        TEXT NOT NULL DEFAULT '',
	raw_query      TEXT NOT NULL,
	sender_context TEXT NOT NULL DEFAULT '',
	query_intent   JSONB,
	status         TEXT NOT NULL DEFAULT 'pending',
	result_count   INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_results (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	title      TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	snippet    TEXT NOT NULL DEFAULT '',
	domain     TEXT NOT NULL DEFAULT '',
	position   INTEGER NOT NULL DEFAULT 0,
	raw_data   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	is_selected          BOOLEAN NOT NULL DEFAULT true,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_search_results_session ON search_results(session_id);
CREATE INDEX IF NOT EXISTS idx_leads_session ON leads(session_id);
CREATE INDEX IF NOT EXISTS idx_leads_selected ON leads(session_id, is_selected);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, rawQuery, senderContext string) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, raw_query, sender_context, status, result_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`,
		id, userID, rawQuery, senderContext, string(model.SessionStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert session")
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

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var sess model.Session
	var intent []byte
	var status string

	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, raw_query, sender_context, query_intent, status, result_count, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		sessionID,
	).Scan(&sess.ID, &sess.UserID, &sess.RawQuery, &sess.SenderContext, &intent, &status, &sess.ResultCount, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get session %s", sessionID)
	}

	sess.Status = model.SessionStatus(status)
	sess.QueryIntent = intent
	return &sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	query := `SELECT id, user_id, raw_query, sender_context, query_intent, status, result_count, created_at, updated_at
		 FROM sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var intent []byte
		var status string
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.RawQuery, &sess.SenderContext, &intent, &status, &sess.ResultCount, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		sess.Status = model.SessionStatus(status)
		sess.QueryIntent = intent
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) UpdateSessionStatus(ctx context.Context, sessionID string, status model.SessionStatus, resultCount *int) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if resultCount != nil {
		tag, err = s.pool.Exec(ctx,
			`UPDATE sessions SET status = $1, result_count = $2, updated_at = $3 WHERE id = $4`,
			string(status), *resultCount, time.Now().UTC(), sessionID,
		)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3`,
			string(status), time.Now().UTC(), sessionID,
		)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: update session status %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", sessionID)
	}
	return nil
}

func (s *PostgresStore) SetQueryIntent(ctx context.Context, sessionID string, intent []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET query_intent = $1, updated_at = $2 WHERE id = $3`,
		intent, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set query intent %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", sessionID)
	}
	return nil
}

func (s *PostgresStore) InsertSearchResults(ctx context.Context, sessionID string, items []model.SearchResult) ([]model.SearchResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin insert search results")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.SearchResult, len(items))
	for i, item := range items {
		item.ID = uuid.New().String()
		item.SessionID = sessionID
		item.CreatedAt = now

		_, err := tx.Exec(ctx,
			`INSERT INTO search_results (id, session_id, title, url, snippet, domain, position, raw_data, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, sessionID, item.Title, item.URL, item.Snippet, item.Domain, item.Position, item.RawData, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: insert search result")
		}
		out[i] = item
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit search results")
	}
	return out, nil
}

func (s *PostgresStore) ListSearchResults(ctx context.Context, sessionID string) ([]model.SearchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, title, url, snippet, domain, position, raw_data, created_at
		 FROM search_results WHERE session_id = $1 ORDER BY position, created_at`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list search results")
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var sr model.SearchResult
		if err := rows.Scan(&sr.ID, &sr.SessionID, &sr.Title, &sr.URL, &sr.Snippet, &sr.Domain, &sr.Position, &sr.RawData, &sr.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search result")
		}
		results = append(results, sr)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list search results iterate")
}

func (s *PostgresStore) InsertLeads(ctx context.Context, leads []model.Lead) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin insert leads")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.Lead, len(leads))
	for i, lead := range leads {
		lead.ID = uuid.New().String()
		lead.CreatedAt = now
		lead.UpdatedAt = now

		var searchResultID any
		if lead.SearchResultID != "" {
			searchResultID = lead.SearchResultID
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO leads (
				id, session_id, search_result_id,
				first_name, last_name, email, email_status, phone,
				job_title, headline, linkedin_url, city, state, country,
				company_name, company_domain, company_industry, company_size, company_linkedin_url,
				scraped_context, email_subject, personalized_email, suggested_approach,
				is_selected, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
			lead.ID, lead.SessionID, searchResultID,
			lead.FirstName, lead.LastName, lead.Email, lead.EmailStatus, lead.Phone,
			lead.JobTitle, lead.Headline, lead.LinkedInURL, lead.City, lead.State, lead.Country,
			lead.CompanyName, lead.CompanyDomain, lead.CompanyIndustry, lead.CompanySize, lead.CompanyLinkedInURL,
			lead.ScrapedContext, lead.EmailSubject, lead.PersonalizedEmail, lead.SuggestedApproach,
			lead.IsSelected, now, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: insert lead")
		}
		out[i] = lead
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit leads")
	}
	return out, nil
}

const pgLeadColumns = `id, session_id, search_result_id,
	first_name, last_name, email, email_status, phone,
	job_title, headline, linkedin_url, city, state, country,
	company_name, company_domain, company_industry, company_size, company_linkedin_url,
	scraped_context, email_subject, personalized_email, suggested_approach,
	is_selected, created_at, updated_at`

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgLeadColumns+` FROM leads WHERE id = $1`, leadID)
	l, err := scanPgLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("lead not found: %s", leadID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", leadID)
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, sessionID string, selectedOnly bool) ([]model.Lead, error) {
	query := `SELECT ` + pgLeadColumns + ` FROM leads WHERE session_id = $1`
	if selectedOnly {
		query += ` AND is_selected`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CountLeads(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM leads WHERE session_id = $1`, sessionID,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count leads")
}

func (s *PostgresStore) UpdateLeadEmails(ctx context.Context, updates []model.LeadEmailUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin update lead emails")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for _, u := range updates {
		_, err := tx.Exec(ctx,
			`UPDATE leads SET email_subject = $1, personalized_email = $2, suggested_approach = $3, updated_at = $4 WHERE id = $5`,
			u.EmailSubject, u.PersonalizedEmail, u.SuggestedApproach, now, u.LeadID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: update lead emails %s", u.LeadID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit lead emails")
}

func (s *PostgresStore) SetLeadSelection(ctx context.Context, leadID string, selected bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET is_selected = $1, updated_at = $2 WHERE id = $3`,
		selected, time.Now().UTC(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set lead selection %s", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", leadID)
	}
	return nil
}

func (s *PostgresStore) UpdateLeadEmail(ctx context.Context, leadID, subject, body, approach string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET email_subject = $1, personalized_email = $2, suggested_approach = $3, updated_at = $4 WHERE id = $5`,
		subject, body, approach, time.Now().UTC(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead email %s", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", leadID)
	}
	return nil
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var searchResultID *string

	err := row.Scan(
		&l.ID, &l.SessionID, &searchResultID,
		&l.FirstName, &l.LastName, &l.Email, &l.EmailStatus, &l.Phone,
		&l.JobTitle, &l.Headline, &l.LinkedInURL, &l.City, &l.State, &l.Country,
		&l.CompanyName, &l.CompanyDomain, &l.CompanyIndustry, &l.CompanySize, &l.CompanyLinkedInURL,
		&l.ScrapedContext, &l.EmailSubject, &l.PersonalizedEmail, &l.SuggestedApproach,
		&l.IsSelected, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if searchResultID != nil {
		l.SearchResultID = *searchResultID
	}
	return &l, nil
}
