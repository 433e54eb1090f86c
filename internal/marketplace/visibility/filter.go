// internal/marketplace/visibility/filter.go

// Package visibility implements the country-restriction rule that limits
// an opportunity to talents located in one designated country.
package visibility

import (
	"strings"

	"talent-marketplace/internal/models"
)

// CountryOf extracts the country component from a location string of the
// form "City, Country" or "Country". Returns "" for an empty location.
func CountryOf(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	if idx := strings.LastIndex(location, ","); idx >= 0 {
		return strings.TrimSpace(location[idx+1:])
	}
	return location
}

// FilterForTalent returns the subset of opportunities visible to a talent
// at the given location. Unrestricted opportunities always pass. A
// restricted opportunity passes only when the talent's country matches
// its allowed country, case-insensitively; an unknown location fails
// closed. Pure and idempotent: filtering a filtered list is a no-op.
func FilterForTalent(opportunities []models.Opportunity, talentLocation string) []models.Opportunity {
	talentCountry := CountryOf(talentLocation)

	visible := make([]models.Opportunity, 0, len(opportunities))
	for _, opp := range opportunities {
		if !opp.CountryRestrictionEnabled {
			visible = append(visible, opp)
			continue
		}
		if talentCountry == "" {
			continue
		}
		if strings.EqualFold(talentCountry, strings.TrimSpace(opp.AllowedCountry)) {
			visible = append(visible, opp)
		}
	}
	return visible
}
