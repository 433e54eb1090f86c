// internal/marketplace/discovery/engine.go

// Package discovery filters and ranks talent profiles for the talent
// search page. FilterAndSort is pure; the Source feeds it from
// Elasticsearch.
package discovery

import (
	"sort"
	"strings"

	"talent-marketplace/internal/models"
	"talent-marketplace/pkg/categories"
)

// placeholderName is what the onboarding flow writes before the talent
// fills in a real name. Profiles still carrying it never surface.
const placeholderName = "Sin nombre"

// Criteria is the discovery filter set. Empty fields are no-ops.
type Criteria struct {
	SearchText      string   `json:"searchText,omitempty"`
	Categories      []string `json:"categories,omitempty"`
	Country         string   `json:"country,omitempty"`
	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	ContractType    string   `json:"contractType,omitempty"`
	WorkModality    string   `json:"workModality,omitempty"`
	FeaturedOnly    bool     `json:"featuredOnly,omitempty"`
	VerifiedOnly    bool     `json:"verifiedOnly,omitempty"`
}

// FilterAndSort applies the visibility gate and filter chain, then the
// stable 4-key ranking. The input slice is not modified.
func FilterAndSort(talents []models.TalentProfile, c Criteria, registry categories.Registry) []models.TalentProfile {
	out := make([]models.TalentProfile, 0, len(talents))
	for _, t := range talents {
		if !isDiscoverable(t) {
			continue
		}
		if !matchesCriteria(t, c, registry) {
			continue
		}
		out = append(out, t)
	}

	// Descending on every key. Keys 1, 3 and 4 are booleans, key 2 is
	// the activity timestamp. Stable so equal profiles keep input order.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		aComplete := a.ProfileCompleteness >= 100
		bComplete := b.ProfileCompleteness >= 100
		if aComplete != bComplete {
			return aComplete
		}
		if !a.LastActiveAt.Equal(b.LastActiveAt) {
			return a.LastActiveAt.After(b.LastActiveAt)
		}
		if a.Verified != b.Verified {
			return a.Verified
		}
		if a.HasVideoPresentation != b.HasVideoPresentation {
			return a.HasVideoPresentation
		}
		return false
	})

	return out
}

// isDiscoverable is the hard visibility gate: a real display name and an
// avatar are required, suspended accounts never surface. Not a ranking
// factor.
func isDiscoverable(t models.TalentProfile) bool {
	if t.Suspended {
		return false
	}
	name := strings.TrimSpace(t.FullName)
	if name == "" || strings.EqualFold(name, placeholderName) {
		return false
	}
	if t.AvatarURL == nil || *t.AvatarURL == "" {
		return false
	}
	return true
}

func matchesCriteria(t models.TalentProfile, c Criteria, registry categories.Registry) bool {
	if c.SearchText != "" && !matchesSearchText(t, c.SearchText) {
		return false
	}
	if len(c.Categories) > 0 && !matchesAnyCategory(t, c.Categories, registry) {
		return false
	}

	// Inclusion filters are permissive on missing data: a profile that
	// never declared the field passes every filter on that field.
	if c.Country != "" && t.Country != "" && !strings.EqualFold(t.Country, c.Country) {
		return false
	}
	if c.ExperienceLevel != "" && t.ExperienceLevel != "" && !strings.EqualFold(t.ExperienceLevel, c.ExperienceLevel) {
		return false
	}
	if c.ContractType != "" && len(t.ContractTypes) > 0 && !containsFold(t.ContractTypes, c.ContractType) {
		return false
	}
	if c.WorkModality != "" && len(t.WorkModalities) > 0 && !containsFold(t.WorkModalities, c.WorkModality) {
		return false
	}

	if c.FeaturedOnly && !t.Featured {
		return false
	}
	if c.VerifiedOnly && !t.Verified {
		return false
	}
	return true
}

func matchesSearchText(t models.TalentProfile, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	for _, field := range []string{t.FullName, t.Title, t.Bio, t.City, t.Country} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// matchesAnyCategory passes if any selected category's keyword list
// matches the profile's title or skills.
func matchesAnyCategory(t models.TalentProfile, selected []string, registry categories.Registry) bool {
	for _, cat := range selected {
		if registry.Match(cat, t.Title, t.Skills) {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
