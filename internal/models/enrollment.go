package models

import "time"

// Enrollment registers a student in a class level for one session. The
// intended invariant is at most one enrollment per (student, session);
// creation checks for an existing row before inserting.
type Enrollment struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	ClassLevelID string    `db:"class_level_id" json:"class_level_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches Enrollment with student and class level info.
type EnrollmentDetail struct {
	Enrollment
	StudentName    string `db:"student_name" json:"student_name"`
	ClassLevelName string `db:"class_level_name" json:"class_level_name"`
	SessionName    string `db:"session_name" json:"session_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	SchoolID     string
	SessionID    string
	ClassLevelID string
	StudentID    string
	Page         int
	PageSize     int
}
