// internal/models/application.go
package models

import "time"

// Application statuses. The set is open: unknown statuses are carried
// through untouched, only the values below trigger stamp side effects.
const (
	ApplicationStatusPending     = "pending"
	ApplicationStatusReviewed    = "reviewed"
	ApplicationStatusContacted   = "contacted"
	ApplicationStatusInterviewed = "interviewed"
	ApplicationStatusAccepted    = "accepted"
	ApplicationStatusRejected    = "rejected"
)

type Application struct {
	ID            string    `json:"id"`
	OpportunityID string    `json:"opportunityId"`
	TalentID      string    `json:"talentId"`
	Status        string    `json:"status"`
	CoverLetter   string    `json:"coverLetter"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Monotonic response markers: set once, never overwritten.
	FirstResponseAt *time.Time `json:"firstResponseAt,omitempty"`
	ContactedAt     *time.Time `json:"contactedAt,omitempty"`
	ViewedAt        *time.Time `json:"viewedAt,omitempty"`
}

// HasResponse reports whether the application has left the pending state.
func (a Application) HasResponse() bool {
	return a.Status != ApplicationStatusPending
}
