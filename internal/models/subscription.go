package models

import "time"

// SubscriptionPlan enumerates the billing tiers.
type SubscriptionPlan string

const (
	SubscriptionPlanTrial    SubscriptionPlan = "TRIAL"
	SubscriptionPlanStandard SubscriptionPlan = "STANDARD"
	SubscriptionPlanPremium  SubscriptionPlan = "PREMIUM"
)

// Subscription gates a school's access. Activation is recorded by the
// external payment collaborator; the core only reads the expiry.
type Subscription struct {
	ID        string           `db:"id" json:"id"`
	SchoolID  string           `db:"school_id" json:"school_id"`
	Plan      SubscriptionPlan `db:"plan" json:"plan"`
	Active    bool             `db:"active" json:"active"`
	ExpiresAt time.Time        `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Valid reports whether the subscription currently grants access.
func (s *Subscription) Valid(now time.Time) bool {
	return s != nil && s.Active && now.Before(s.ExpiresAt)
}
