// pkg/categories/categories.go

// Package categories holds the hand-curated category keyword lists used
// by talent discovery. The lists are independent of the category taxonomy
// used at opportunity-creation time; there is no canonical source of
// truth tying the two together.
package categories

import "strings"

// Registry maps a category identifier to the keywords that identify it
// in a profile's title or skills.
type Registry map[string][]string

// Default is the built-in registry.
var Default = Registry{
	"development": {"developer", "programador", "software", "backend", "frontend", "fullstack", "devops", "mobile"},
	"design":      {"designer", "diseño", "ux", "ui", "graphic", "gráfico", "branding", "ilustra"},
	"marketing":   {"marketing", "growth", "seo", "sem", "ads", "community", "content", "contenido"},
	"data":        {"data", "datos", "analyst", "analista", "scientist", "machine learning", "bi", "etl"},
	"product":     {"product", "producto", "pm", "owner", "scrum", "agile"},
	"sales":       {"sales", "ventas", "account", "comercial", "business development"},
	"operations":  {"operations", "operaciones", "logistics", "logística", "supply", "admin"},
	"finance":     {"finance", "finanzas", "accounting", "contabilidad", "controller", "treasury"},
}

// Names returns the category identifiers defined in the registry.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}

// Match reports whether a profile with the given title and skills belongs
// to the category. A title match and a skills match are each sufficient
// on their own.
func (r Registry) Match(category, title string, skills []string) bool {
	keywords, ok := r[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return false
	}

	titleLower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(titleLower, kw) {
			return true
		}
	}

	for _, skill := range skills {
		skillLower := strings.ToLower(skill)
		for _, kw := range keywords {
			if strings.Contains(skillLower, kw) {
				return true
			}
		}
	}

	return false
}
