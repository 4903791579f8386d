package store

import (
	"context"

	"github.com/siyada/leadgen-cli/internal/model"
)

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	UserID string              `json:"user_id,omitempty"`
	Status model.SessionStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead-generation pipeline.
// The orchestrator is the only writer for a given session's rows; readers
// (status polling, lead review) may observe any committed intermediate state.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, userID, rawQuery, senderContext string) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	// UpdateSessionStatus advances the session status. A non-nil resultCount
	// snapshots the authoritative row count at the time of the write.
	UpdateSessionStatus(ctx context.Context, sessionID string, status model.SessionStatus, resultCount *int) error
	SetQueryIntent(ctx context.Context, sessionID string, intent []byte) error

	// Search results
	InsertSearchResults(ctx context.Context, sessionID string, items []model.SearchResult) ([]model.SearchResult, error)
	ListSearchResults(ctx context.Context, sessionID string) ([]model.SearchResult, error)

	// Leads
	InsertLeads(ctx context.Context, leads []model.Lead) ([]model.Lead, error)
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	ListLeads(ctx context.Context, sessionID string, selectedOnly bool) ([]model.Lead, error)
	CountLeads(ctx context.Context, sessionID string) (int, error)
	// UpdateLeadEmails commits all generated email fields in one batch.
	UpdateLeadEmails(ctx context.Context, updates []model.LeadEmailUpdate) error
	SetLeadSelection(ctx context.Context, leadID string, selected bool) error
	UpdateLeadEmail(ctx context.Context, leadID, subject, body, approach string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
