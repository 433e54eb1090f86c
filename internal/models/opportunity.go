// internal/models/opportunity.go
package models

import "time"

// Opportunity lifecycle statuses. Status may be empty when the backend row
// carries a NULL status.
const (
	OpportunityStatusDraft  = "draft"
	OpportunityStatusActive = "active"
	OpportunityStatusPaused = "paused"
	OpportunityStatusClosed = "closed"
)

type Opportunity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status,omitempty"`
	CompanyID   string    `json:"companyId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	CountryRestrictionEnabled bool   `json:"countryRestrictionEnabled"`
	AllowedCountry            string `json:"allowedCountry,omitempty"`
	AcademyExclusive          bool   `json:"academyExclusive"`

	SalaryMin      *int64 `json:"salaryMin,omitempty"`
	SalaryMax      *int64 `json:"salaryMax,omitempty"`
	SalaryCurrency string `json:"salaryCurrency,omitempty"`

	// Display fields that may be absent from the backend row; the
	// dashboard applies defaults once at the boundary.
	LocationType string   `json:"locationType,omitempty"`
	Skills       []string `json:"skills,omitempty"`

	// Joined application count, populated on talent-facing fetches.
	ApplicationCount int `json:"applicationCount"`
}

// AcceptsApplications reports whether the opportunity is open for new
// applications. A closed opportunity never accepts applications.
func (o Opportunity) AcceptsApplications() bool {
	return o.Status == OpportunityStatusActive
}
