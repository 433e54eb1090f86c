// internal/models/talent.go
package models

import "time"

// TalentProfile is the search/discovery projection of a talent account.
type TalentProfile struct {
	ID       string   `json:"id"`
	FullName string   `json:"fullName"`
	Title    string   `json:"title"`
	Bio      string   `json:"bio"`
	Skills   []string `json:"skills"`
	City     string   `json:"city"`
	Country  string   `json:"country"`

	// AvatarURL is nil until the talent uploads an avatar; a nil avatar
	// keeps the profile out of discovery entirely.
	AvatarURL *string `json:"avatarUrl,omitempty"`

	Featured  bool `json:"featured"`
	Verified  bool `json:"verified"` // academy membership
	Premium   bool `json:"premium"`
	Suspended bool `json:"suspended"`

	ProfileCompleteness  int       `json:"profileCompleteness"` // 0-100
	LastActiveAt         time.Time `json:"lastActiveAt"`
	HasVideoPresentation bool      `json:"hasVideoPresentation"`

	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	WorkModalities  []string `json:"workModalities,omitempty"`
	ContractTypes   []string `json:"contractTypes,omitempty"`
}
