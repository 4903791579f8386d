package model

import "time"

// SessionStatus represents the current state of a pipeline session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusSearching  SessionStatus = "searching"
	SessionStatusEnriching  SessionStatus = "enriching"
	SessionStatusGenerating SessionStatus = "generating"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// statusRank orders the forward-progress states. Failed is reachable from
// any non-terminal state and sits outside the ordering.
var statusRank = map[SessionStatus]int{
	SessionStatusPending:    0,
	SessionStatusSearching:  1,
	SessionStatusEnriching:  2,
	SessionStatusGenerating: 3,
	SessionStatusCompleted:  4,
}

// CanTransition reports whether moving from s to next preserves forward
// progress. There is no retry-from-state: a failed session is redriven only
// by starting a new one.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == SessionStatusFailed {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Session is one end-to-end pipeline run for one user query.
type Session struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id,omitempty"`
	RawQuery      string        `json:"raw_query"`
	SenderContext string        `json:"sender_context,omitempty"`
	QueryIntent   []byte        `json:"query_intent,omitempty"` // serialized QueryIntent snapshot
	Status        SessionStatus `json:"status"`
	ResultCount   int           `json:"result_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// QueryIntent is the structured interpretation of a raw audience query.
type QueryIntent struct {
	SearchQueries   []string `json:"search_queries"`
	JobTitles       []string `json:"job_titles"`
	SeniorityLevels []string `json:"seniority_levels"`
}

// SearchResult is one web-search hit tied to a session. Rows are created in
// bulk after the search stage and are immutable thereafter.
type SearchResult struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Snippet   string    `json:"snippet"`
	Domain    string    `json:"domain"`
	Position  int       `json:"position"`
	RawData   []byte    `json:"raw_data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
