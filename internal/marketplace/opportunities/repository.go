// internal/marketplace/opportunities/repository.go
package opportunities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"talent-marketplace/internal/models"

	"github.com/lib/pq"
)

// draftRetention is how many of a company's most recent drafts surface on
// its dashboard. Older drafts remain stored but are not fetched.
const draftRetention = 2

var ErrNotFound = errors.New("not found")

// Repository is the SQL access layer for opportunities and applications.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const opportunityColumns = `
	o.id, o.title, o.description, o.category, o.status, o.company_id,
	o.created_at, o.updated_at,
	o.country_restriction_enabled, o.allowed_country, o.academy_exclusive,
	o.salary_min, o.salary_max, o.salary_currency,
	o.location_type, o.skills`

// ListActive returns active opportunities newest first, each carrying its
// joined application count.
func (r *Repository) ListActive(ctx context.Context) ([]models.Opportunity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+opportunityColumns+`, COUNT(a.id) AS application_count
		FROM opportunities o
		LEFT JOIN applications a ON a.opportunity_id = o.id
		WHERE o.status = 'active'
		GROUP BY o.id
		ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows, true)
}

// ListForCompany returns the company's opportunities with status in
// {active, paused, closed} plus its two most recently created drafts,
// merged and re-sorted by creation time descending.
func (r *Repository) ListForCompany(ctx context.Context, companyID string) ([]models.Opportunity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+opportunityColumns+`
		FROM opportunities o
		WHERE o.company_id = $1 AND o.status = ANY($2)
		ORDER BY o.created_at DESC`,
		companyID,
		pq.Array([]string{
			models.OpportunityStatusActive,
			models.OpportunityStatusPaused,
			models.OpportunityStatusClosed,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("list company opportunities: %w", err)
	}
	published, err := scanOpportunities(rows, false)
	rows.Close()
	if err != nil {
		return nil, err
	}

	draftRows, err := r.db.QueryContext(ctx, `
		SELECT `+opportunityColumns+`
		FROM opportunities o
		WHERE o.company_id = $1 AND o.status = 'draft'
		ORDER BY o.created_at DESC
		LIMIT $2`,
		companyID, draftRetention,
	)
	if err != nil {
		return nil, fmt.Errorf("list company drafts: %w", err)
	}
	drafts, err := scanOpportunities(draftRows, false)
	draftRows.Close()
	if err != nil {
		return nil, err
	}

	merged := append(published, drafts...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// GetOpportunity fetches a single opportunity, ErrNotFound when missing.
func (r *Repository) GetOpportunity(ctx context.Context, id string) (models.Opportunity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+opportunityColumns+`
		FROM opportunities o
		WHERE o.id = $1`, id)

	opp, err := scanOpportunity(row, false)
	if err == sql.ErrNoRows {
		return models.Opportunity{}, ErrNotFound
	}
	if err != nil {
		return models.Opportunity{}, fmt.Errorf("get opportunity: %w", err)
	}
	return opp, nil
}

// GetOpportunityOwner resolves the user that owns an opportunity's company.
func (r *Repository) GetOpportunityOwner(ctx context.Context, opportunityID string) (string, error) {
	var ownerID string
	err := r.db.QueryRowContext(ctx, `
		SELECT c.owner_id
		FROM opportunities o
		JOIN companies c ON c.id = o.company_id
		WHERE o.id = $1`, opportunityID,
	).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get opportunity owner: %w", err)
	}
	return ownerID, nil
}

// ApplicationExists reports whether the talent already applied to the
// opportunity.
func (r *Repository) ApplicationExists(ctx context.Context, opportunityID, talentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE opportunity_id = $1 AND talent_id = $2
		)`, opportunityID, talentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return exists, nil
}

// InsertApplication stores a new application row.
func (r *Repository) InsertApplication(ctx context.Context, app models.Application) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, opportunity_id, talent_id, status, cover_letter,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		app.ID,
		app.OpportunityID,
		app.TalentID,
		app.Status,
		app.CoverLetter,
		app.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// GetApplication fetches one application with its response markers.
func (r *Repository) GetApplication(ctx context.Context, id string) (models.Application, error) {
	var app models.Application
	var firstResponseAt, contactedAt, viewedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, opportunity_id, talent_id, status, cover_letter,
			created_at, updated_at, first_response_at, contacted_at, viewed_at
		FROM applications
		WHERE id = $1`, id,
	).Scan(
		&app.ID, &app.OpportunityID, &app.TalentID, &app.Status, &app.CoverLetter,
		&app.CreatedAt, &app.UpdatedAt, &firstResponseAt, &contactedAt, &viewedAt,
	)
	if err == sql.ErrNoRows {
		return models.Application{}, ErrNotFound
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("get application: %w", err)
	}
	app.FirstResponseAt = timePtr(firstResponseAt)
	app.ContactedAt = timePtr(contactedAt)
	app.ViewedAt = timePtr(viewedAt)
	return app, nil
}

// UpdateApplicationStatus writes the new status and any response markers
// being stamped for the first time. COALESCE keeps existing stamps:
// markers are monotonic and never overwritten once set.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, id, status string, firstResponseAt, contactedAt, viewedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $2,
			updated_at = $3,
			first_response_at = COALESCE(first_response_at, $4),
			contacted_at = COALESCE(contacted_at, $5),
			viewed_at = COALESCE(viewed_at, $6)
		WHERE id = $1`,
		id, status, time.Now().UTC(), nullTime(firstResponseAt), nullTime(contactedAt), nullTime(viewedAt),
	)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}

// SetOpportunityStatus transitions an opportunity's lifecycle status.
func (r *Repository) SetOpportunityStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE opportunities
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set opportunity status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListApplicants returns the talent ids with an application against the
// opportunity.
func (r *Repository) ListApplicants(ctx context.Context, opportunityID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT talent_id FROM applications
		WHERE opportunity_id = $1`, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan applicant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListApplicationsForCompany returns every application against the
// company's opportunities, the input to the metrics aggregator.
func (r *Repository) ListApplicationsForCompany(ctx context.Context, companyID string) ([]models.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.opportunity_id, a.talent_id, a.status, a.cover_letter,
			a.created_at, a.updated_at, a.first_response_at, a.contacted_at, a.viewed_at
		FROM applications a
		JOIN opportunities o ON o.id = a.opportunity_id
		WHERE o.company_id = $1
		ORDER BY a.created_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list company applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		var app models.Application
		var firstResponseAt, contactedAt, viewedAt sql.NullTime
		if err := rows.Scan(
			&app.ID, &app.OpportunityID, &app.TalentID, &app.Status, &app.CoverLetter,
			&app.CreatedAt, &app.UpdatedAt, &firstResponseAt, &contactedAt, &viewedAt,
		); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		app.FirstResponseAt = timePtr(firstResponseAt)
		app.ContactedAt = timePtr(contactedAt)
		app.ViewedAt = timePtr(viewedAt)
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// --- row scanning ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOpportunity(row rowScanner, withCount bool) (models.Opportunity, error) {
	var opp models.Opportunity
	var status, allowedCountry, salaryCurrency, locationType sql.NullString
	var restricted, academyExclusive sql.NullBool
	var salaryMin, salaryMax sql.NullInt64
	var skills pq.StringArray

	dest := []interface{}{
		&opp.ID, &opp.Title, &opp.Description, &opp.Category, &status, &opp.CompanyID,
		&opp.CreatedAt, &opp.UpdatedAt,
		&restricted, &allowedCountry, &academyExclusive,
		&salaryMin, &salaryMax, &salaryCurrency,
		&locationType, &skills,
	}
	if withCount {
		dest = append(dest, &opp.ApplicationCount)
	}

	if err := row.Scan(dest...); err != nil {
		return models.Opportunity{}, err
	}

	opp.Status = status.String
	opp.CountryRestrictionEnabled = restricted.Valid && restricted.Bool
	opp.AllowedCountry = allowedCountry.String
	opp.AcademyExclusive = academyExclusive.Valid && academyExclusive.Bool
	if salaryMin.Valid {
		opp.SalaryMin = &salaryMin.Int64
	}
	if salaryMax.Valid {
		opp.SalaryMax = &salaryMax.Int64
	}
	opp.SalaryCurrency = salaryCurrency.String
	opp.LocationType = locationType.String
	opp.Skills = []string(skills)
	return opp, nil
}

func scanOpportunities(rows *sql.Rows, withCount bool) ([]models.Opportunity, error) {
	var opps []models.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows, withCount)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
