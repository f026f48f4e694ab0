package models

import "time"

// School is the tenancy root. Every academic record belongs to exactly
// one school and cross-school access is never permitted.
type School struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Address     *string   `db:"address" json:"address,omitempty"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Email       *string   `db:"email" json:"email,omitempty"`
	IsPrimary   bool      `db:"is_primary" json:"is_primary"`
	IsSecondary bool      `db:"is_secondary" json:"is_secondary"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolFilter defines filters supported by list endpoints.
type SchoolFilter struct {
	Name     string
	Page     int
	PageSize int
}
