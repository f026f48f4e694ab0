package models

import "time"

// Student is a pupil registered with a school. Class membership lives on
// Enrollment, one per session, so promotion history stays queryable.
type Student struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	OtherInfo *string   `db:"other_info" json:"other_info,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	SchoolID     string
	ClassLevelID string
	SessionID    string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// StudentDetail contains student information with enrollment context for
// one session.
type StudentDetail struct {
	Student
	ClassLevelID   *string `db:"class_level_id" json:"class_level_id,omitempty"`
	ClassLevelName *string `db:"class_level_name" json:"class_level_name,omitempty"`
	SessionID      *string `db:"session_id" json:"session_id,omitempty"`
}
