package models

import "time"

// ClassLevel is one rung of a school's promotion ladder. Ladder order is
// creation order, which the rollover engine relies on.
type ClassLevel struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
