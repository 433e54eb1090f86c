// internal/marketplace/dashboard/mock.go
package dashboard

import (
	"time"

	"talent-marketplace/internal/models"
)

// Static fixture served in mock mode. Shapes must stay identical to the
// real backend rows so the composed snapshot is indistinguishable.

func mockOpportunities() []models.Opportunity {
	base := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	salaryMin := int64(2500)
	salaryMax := int64(4000)

	return []models.Opportunity{
		{
			ID:               "mock-opp-1",
			Title:            "Desarrollador Frontend React",
			Description:      "Equipo de producto buscando frontend con React y TypeScript.",
			Category:         "development",
			Status:           models.OpportunityStatusActive,
			CompanyID:        "mock-company-1",
			CreatedAt:        base,
			UpdatedAt:        base,
			SalaryMin:        &salaryMin,
			SalaryMax:        &salaryMax,
			SalaryCurrency:   "USD",
			LocationType:     "remote",
			Skills:           []string{"react", "typescript", "css"},
			ApplicationCount: 12,
		},
		{
			ID:               "mock-opp-2",
			Title:            "Diseñador UX/UI",
			Description:      "Diseño de experiencias para la plataforma de talento.",
			Category:         "design",
			Status:           models.OpportunityStatusActive,
			CompanyID:        "mock-company-1",
			CreatedAt:        base.Add(-48 * time.Hour),
			UpdatedAt:        base.Add(-24 * time.Hour),
			LocationType:     "hybrid",
			Skills:           []string{"figma", "prototyping"},
			ApplicationCount: 5,
		},
		{
			ID:        "mock-opp-3",
			Title:     "Analista de Datos",
			Category:  "data",
			Status:    models.OpportunityStatusDraft,
			CompanyID: "mock-company-1",
			CreatedAt: base.Add(-72 * time.Hour),
			UpdatedAt: base.Add(-72 * time.Hour),
		},
	}
}

func mockApplications() []models.Application {
	base := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	responded := base.Add(-20 * time.Hour)

	return []models.Application{
		{
			ID:            "mock-app-1",
			OpportunityID: "mock-opp-1",
			TalentID:      "mock-talent-1",
			Status:        models.ApplicationStatusPending,
			CoverLetter:   "Me interesa la posición de frontend.",
			CreatedAt:     base.Add(-2 * time.Hour),
			UpdatedAt:     base.Add(-2 * time.Hour),
		},
		{
			ID:              "mock-app-2",
			OpportunityID:   "mock-opp-1",
			TalentID:        "mock-talent-2",
			Status:          models.ApplicationStatusContacted,
			CoverLetter:     "Tengo 4 años de experiencia con React.",
			CreatedAt:       base.Add(-30 * time.Hour),
			UpdatedAt:       responded,
			FirstResponseAt: &responded,
			ContactedAt:     &responded,
		},
		{
			ID:            "mock-app-3",
			OpportunityID: "mock-opp-2",
			TalentID:      "mock-talent-3",
			Status:        models.ApplicationStatusReviewed,
			CoverLetter:   "Portfolio adjunto.",
			CreatedAt:     base.Add(-50 * time.Hour),
			UpdatedAt:     base.Add(-40 * time.Hour),
			FirstResponseAt: func() *time.Time {
				t := base.Add(-40 * time.Hour)
				return &t
			}(),
			ViewedAt: func() *time.Time {
				t := base.Add(-40 * time.Hour)
				return &t
			}(),
		},
	}
}
