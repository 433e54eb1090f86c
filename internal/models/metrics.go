// internal/models/metrics.go
package models

// DashboardMetrics is a transient view derived from the application set
// scoped to a business's opportunities. Recomputed from scratch on every
// load, never persisted or cached across sessions.
type DashboardMetrics struct {
	TotalApplications      int `json:"totalApplications"`
	UnreadApplications     int `json:"unreadApplications"`
	ThisWeekApplications   int `json:"thisWeekApplications"`
	ThisMonthApplications  int `json:"thisMonthApplications"`
	ContactedCandidates    int `json:"contactedCandidates"`
	CandidatesInEvaluation int `json:"candidatesInEvaluation"`

	AverageResponseTimeHours float64 `json:"averageResponseTimeHours"`
	ConversionRate           float64 `json:"conversionRate"`

	ApplicationsByOpportunity map[string]int `json:"applicationsByOpportunity"`
}
