// internal/models/actor.go
package models

// Role identifies the kind of actor driving a marketplace operation.
type Role string

const (
	RoleTalent        Role = "talent"
	RolePremiumTalent Role = "premium_talent"
	RoleBusiness      Role = "business"
	RoleAcademy       Role = "academy"
	RoleAdmin         Role = "admin"
)

// IsBusinessSide reports whether the role operates the company-facing dashboard.
func (r Role) IsBusinessSide() bool {
	return r == RoleBusiness || r == RoleAcademy
}

// IsTalentSide reports whether the role browses and applies to opportunities.
func (r Role) IsTalentSide() bool {
	return r == RoleTalent || r == RolePremiumTalent
}

// ActorContext carries the identity every core operation needs. It is
// passed explicitly instead of read from ambient state so the filtering
// and aggregation logic stays pure and testable.
type ActorContext struct {
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
	CompanyID string `json:"companyId,omitempty"`
	Location  string `json:"location,omitempty"` // "City, Country", "Country", or empty when unknown
}
