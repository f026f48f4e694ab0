package models

import "time"

// GradingBand maps an inclusive score range onto a letter grade and a
// remark. Bands belong to one school and are searched in descending
// MinScore order, first match wins.
type GradingBand struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	MinScore  int       `db:"min_score" json:"min_score"`
	MaxScore  int       `db:"max_score" json:"max_score"`
	Grade     string    `db:"grade" json:"grade"`
	Remark    string    `db:"remark" json:"remark"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GradeRemark is the resolved pair returned by the grading scale. A score
// no band covers resolves to the UnresolvedGrade sentinel instead of an
// error so report rendering never hard-fails on a misconfigured scale.
type GradeRemark struct {
	Grade  string `json:"grade"`
	Remark string `json:"remark"`
}

// UnresolvedGrade is returned when no band covers a score.
var UnresolvedGrade = GradeRemark{Grade: "N/A", Remark: "N/A"}
