package models

import "time"

// SubjectResult is one student's scores for one subject in one term.
// CA, TotalScore, Grade and Remark are derived on write: CA is the sum of
// the three test components, TotalScore adds the exam, and the grade pair
// comes from the school's grading bands. Rows upsert on the
// (student, term, session, subject) tuple.
type SubjectResult struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	TermID     string    `db:"term_id" json:"term_id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Subject    string    `db:"subject" json:"subject"`
	FirstTest  *int      `db:"first_test" json:"first_test,omitempty"`
	SecondTest *int      `db:"second_test" json:"second_test,omitempty"`
	ThirdTest  *int      `db:"third_test" json:"third_test,omitempty"`
	CA         int       `db:"ca" json:"c_a"`
	Exam       *int      `db:"exam" json:"exam,omitempty"`
	TotalScore int       `db:"total_score" json:"total_score"`
	Grade      string    `db:"grade" json:"grade"`
	Remark     string    `db:"remark" json:"remark"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TermTotal is the materialized aggregate of a student's subject results
// for one (term, session). It is recomputed in full whenever any
// constituent subject result is written; only the two comment fields are
// edited independently and survive recomputation.
type TermTotal struct {
	ID               string    `db:"id" json:"id"`
	SchoolID         string    `db:"school_id" json:"school_id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	TermID           string    `db:"term_id" json:"term_id"`
	SessionID        string    `db:"session_id" json:"session_id"`
	TotalCA          int       `db:"total_ca" json:"total_ca"`
	TotalExam        int       `db:"total_exam" json:"total_exam"`
	TotalScore       int       `db:"total_score" json:"total_score"`
	Grade            string    `db:"grade" json:"grade"`
	Remark           string    `db:"remark" json:"remark"`
	TeacherComment   *string   `db:"teacher_comment" json:"teacher_comment,omitempty"`
	PrincipalComment *string   `db:"principal_comment" json:"principal_comment,omitempty"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// StudentTotal is one cohort member's summed subject total for a term,
// used by the ranking engine. Missing results coalesce to zero.
type StudentTotal struct {
	StudentID string `db:"student_id" json:"student_id"`
	Total     int    `db:"total" json:"total"`
}

// SubjectResultFilter scopes result listings.
type SubjectResultFilter struct {
	SchoolID  string
	StudentID string
	TermID    string
	SessionID string
	Subject   string
}
