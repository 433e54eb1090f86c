// internal/marketplace/appmetrics/aggregator.go

// Package appmetrics computes dashboard metrics from a raw application
// list. All values are recomputed from scratch on every call; there is no
// incremental update path.
package appmetrics

import (
	"math"
	"time"

	"talent-marketplace/internal/models"
)

// Compute aggregates an already-scoped application list into dashboard
// metrics. now anchors the trailing-week and calendar-month windows.
func Compute(applications []models.Application, now time.Time) models.DashboardMetrics {
	m := models.DashboardMetrics{
		TotalApplications:         len(applications),
		ApplicationsByOpportunity: make(map[string]int, len(applications)),
	}

	weekStart := now.Add(-7 * 24 * time.Hour)
	// Month boundary is the first instant of the current calendar month,
	// not a trailing 30-day window.
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var responseHours float64
	var responded int

	for _, app := range applications {
		m.ApplicationsByOpportunity[app.OpportunityID]++

		switch app.Status {
		case models.ApplicationStatusPending:
			m.UnreadApplications++
			m.CandidatesInEvaluation++
		case models.ApplicationStatusReviewed:
			m.CandidatesInEvaluation++
		case models.ApplicationStatusContacted, models.ApplicationStatusInterviewed:
			m.ContactedCandidates++
		}

		if !app.CreatedAt.Before(weekStart) {
			m.ThisWeekApplications++
		}
		if !app.CreatedAt.Before(monthStart) {
			m.ThisMonthApplications++
		}

		if app.HasResponse() {
			responseHours += app.UpdatedAt.Sub(app.CreatedAt).Hours()
			responded++
		}
	}

	if responded > 0 {
		m.AverageResponseTimeHours = round1(responseHours / float64(responded))
	}
	if m.TotalApplications > 0 {
		m.ConversionRate = round1(float64(m.ContactedCandidates) / float64(m.TotalApplications) * 100)
	}

	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
