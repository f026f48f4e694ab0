package models

import "time"

// Session models one academic year for a school. At most one session per
// school carries IsCurrent at any time; the toggle deactivates siblings
// before activating.
type Session struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	Name        string    `db:"name" json:"name"`
	IsCurrent   bool      `db:"is_current" json:"is_current"`
	ShowResults bool      `db:"show_results" json:"show_results"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Term is one grading period within a session. At most one term per
// current session is current.
type Term struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Name      string    `db:"name" json:"name"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CurrentPeriod bundles the school's active session and term. Writes that
// depend on "now" (score entry, result reset) resolve this first.
type CurrentPeriod struct {
	Session Session `json:"session"`
	Term    Term    `json:"term"`
}

// SessionFilter defines filters supported by session list endpoints.
type SessionFilter struct {
	SchoolID  string
	IsCurrent *bool
}
