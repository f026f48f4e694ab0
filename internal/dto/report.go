package dto

import "github.com/noah-isme/school-results-api/internal/models"

// SchoolInfo heads the report payload.
type SchoolInfo struct {
	SchoolName string `json:"school_name"`
	Location   string `json:"location"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// PeriodInfo names the session and term the report covers.
type PeriodInfo struct {
	Session string `json:"session"`
	Term    string `json:"term"`
}

// StudentInfo identifies the report's student.
type StudentInfo struct {
	StudentName string `json:"student_name"`
	OtherInfo   string `json:"other_info"`
	ClassLevel  string `json:"class"`
}

// RankingSummary carries the computed standing of the student within the
// cohort. Available is false when the student has no enrollment for the
// session; the rest of the report still renders.
type RankingSummary struct {
	Available     bool    `json:"available"`
	TotalScore    int     `json:"total_score"`
	OutOf         int     `json:"out_of"`
	AverageScore  float64 `json:"average_score"`
	ClassAverage  float64 `json:"class_average"`
	Position      int     `json:"position"`
	PositionLabel string  `json:"position_ordinal"`
	OutOfStudents int     `json:"out_of_students"`
}

// Comments carries the per-term staff comments; unset values render as
// "Not Set".
type Comments struct {
	TeacherComment   string `json:"teacher_comment"`
	PrincipalComment string `json:"principal_comment"`
}

// ReportPayload is the full result report consumed by the presentation
// layer for both the school's own view and the parent view.
type ReportPayload struct {
	School         SchoolInfo             `json:"school_info"`
	Period         PeriodInfo             `json:"academic_sessions"`
	Student        StudentInfo            `json:"student"`
	SubjectResults []models.SubjectResult `json:"results"`
	TermTotal      *models.TermTotal      `json:"term_total,omitempty"`
	Ranking        RankingSummary         `json:"performance_summary"`
	Comments       Comments               `json:"comments"`
}

// ExportRequest captures POST /exports payload.
type ExportRequest struct {
	Type         models.ExportType   `json:"type" validate:"required,oneof=report_cards broadsheet"`
	SessionID    string              `json:"sessionId" validate:"required"`
	TermID       string              `json:"termId" validate:"required"`
	ClassLevelID string              `json:"classLevelId" validate:"required"`
	Format       models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
