// internal/marketplace/opportunities/service_test.go
package opportunities

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	marketerrors "talent-marketplace/internal/common/errors"
	"talent-marketplace/internal/common/logger/loggertest"
	"talent-marketplace/internal/marketplace/notify"
	"talent-marketplace/internal/marketplace/quota"
	"talent-marketplace/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeQuota struct {
	status   quota.Status
	err      error
	recorded []string
}

func (f *fakeQuota) Check(ctx context.Context, userID string, role models.Role) (quota.Status, error) {
	return f.status, f.err
}

func (f *fakeQuota) Record(ctx context.Context, userID string) {
	f.recorded = append(f.recorded, userID)
}

func allowingQuota() *fakeQuota {
	return &fakeQuota{status: quota.Status{CanApply: true, Current: 0, Limit: 10}}
}

type fakeDispatcher struct {
	requests []notify.Request
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req notify.Request) {
	f.requests = append(f.requests, req)
}

func newTestService(t *testing.T, db *sql.DB, q QuotaChecker, d Dispatcher) *Service {
	return NewService(NewRepository(db), q, d, loggertest.New(t))
}

var opportunityTestColumns = []string{
	"id", "title", "description", "category", "status", "company_id",
	"created_at", "updated_at",
	"country_restriction_enabled", "allowed_country", "academy_exclusive",
	"salary_min", "salary_max", "salary_currency",
	"location_type", "skills",
}

func opportunityRow(id, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(opportunityTestColumns).AddRow(
		id, "Backend Developer", "Build services", "development", status, "company-1",
		now, now,
		false, nil, false,
		nil, nil, nil,
		"remote", "{go,postgres}",
	)
}

func talentActor() models.ActorContext {
	return models.ActorContext{
		UserID:   "talent-1",
		Role:     models.RoleTalent,
		Location: "Bogotá, Colombia",
	}
}

// ==========================
// Fetch Tests
// ==========================

func TestFetchOpportunities_BusinessWithoutCompanyReturnsEmpty(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	opps, err := svc.FetchOpportunities(context.Background(), models.ActorContext{
		UserID: "biz-1",
		Role:   models.RoleBusiness,
	})

	assert.NoError(t, err)
	assert.Empty(t, opps)
}

func TestFetchOpportunities_TalentAppliesCountryFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(append(opportunityTestColumns, "application_count")).
		AddRow(
			"opp-open", "Open role", "", "development", "active", "company-1",
			now, now, false, nil, false, nil, nil, nil, "remote", "{}", 3,
		).
		AddRow(
			"opp-peru", "Peru only", "", "development", "active", "company-2",
			now, now, true, "Peru", false, nil, nil, nil, "remote", "{}", 1,
		)
	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.status = 'active'`).
		WillReturnRows(rows)

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	opps, err := svc.FetchOpportunities(context.Background(), talentActor())

	assert.NoError(t, err)
	assert.Len(t, opps, 1)
	assert.Equal(t, "opp-open", opps[0].ID)
	assert.Equal(t, 3, opps[0].ApplicationCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchOpportunities_QueryFailureSurfacesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities`).
		WillReturnError(errors.New("connection reset"))

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	opps, err := svc.FetchOpportunities(context.Background(), talentActor())

	assert.Error(t, err)
	assert.Nil(t, opps)
	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeQueryExecutionFailed))
}

func TestFetchApplications_NoCompanyReturnsEmpty(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	apps, err := svc.FetchApplications(context.Background(), models.ActorContext{UserID: "biz-1"})

	assert.NoError(t, err)
	assert.Empty(t, apps)
}

// ==========================
// Apply Guard Tests
// ==========================

func TestApply_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("opp-1", "talent-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO applications`).
		WithArgs(
			sqlmock.AnyArg(), // application ID (UUID)
			"opp-1",
			"talent-1",
			models.ApplicationStatusPending,
			"I would love to join.",
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT c.owner_id`).
		WithArgs("opp-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("owner-1"))

	q := allowingQuota()
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, db, q, dispatcher)

	app, err := svc.Apply(context.Background(), talentActor(), "opp-1", "I would love to join.")

	assert.NoError(t, err)
	assert.NotNil(t, app)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, []string{"talent-1"}, q.recorded)

	assert.Len(t, dispatcher.requests, 1)
	assert.Equal(t, "owner-1", dispatcher.requests[0].RecipientID)
	assert.Equal(t, models.NotificationTypeNewApplication, dispatcher.requests[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RejectsEmptyCoverLetter(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	app, err := svc.Apply(context.Background(), talentActor(), "opp-1", "")

	assert.Error(t, err)
	assert.Nil(t, app)
	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeApplicationValidation))
}

func TestApply_RejectsBusinessActor(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	app, err := svc.Apply(context.Background(), models.ActorContext{
		UserID:    "biz-1",
		Role:      models.RoleBusiness,
		CompanyID: "company-1",
	}, "opp-1", "hello")

	assert.Error(t, err)
	assert.Nil(t, app)
	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeApplicationValidation))
}

func TestApply_RejectsUnknownOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-missing").
		WillReturnRows(sqlmock.NewRows(opportunityTestColumns))

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	_, err = svc.Apply(context.Background(), talentActor(), "opp-missing", "hello")

	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeOpportunityNotFound))
}

func TestApply_RejectsClosedOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusClosed))

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	_, err = svc.Apply(context.Background(), talentActor(), "opp-1", "hello")

	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeOpportunityClosed))
}

func TestApply_RejectsPausedOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusPaused))

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	_, err = svc.Apply(context.Background(), talentActor(), "opp-1", "hello")

	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeOpportunityNotActive))
}

func TestApply_RejectsDuplicateWithoutInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("opp-1", "talent-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	q := allowingQuota()
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, db, q, dispatcher)

	app, err := svc.Apply(context.Background(), talentActor(), "opp-1", "hello")

	assert.Nil(t, app)
	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeDuplicateApplication))
	assert.Empty(t, q.recorded)
	assert.Empty(t, dispatcher.requests)
	// No INSERT was expected and none may have run.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RejectsWhenQuotaExhausted(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("opp-1", "talent-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	q := &fakeQuota{status: quota.Status{CanApply: false, Current: 10, Limit: 10}}
	svc := newTestService(t, db, q, &fakeDispatcher{})

	_, err = svc.Apply(context.Background(), talentActor(), "opp-1", "hello")

	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeQuotaExceeded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_OwnerLookupFailureDoesNotFailApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("opp-1", "talent-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO applications`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT c.owner_id`).
		WithArgs("opp-1").
		WillReturnError(errors.New("owner lookup failed"))

	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, db, allowingQuota(), dispatcher)

	app, err := svc.Apply(context.Background(), talentActor(), "opp-1", "hello")

	assert.NoError(t, err)
	assert.NotNil(t, app)
	assert.Empty(t, dispatcher.requests)
}

// ==========================
// Status Transition Tests
// ==========================

func applicationRow(id, status string, firstResponseAt, contactedAt, viewedAt interface{}) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "opportunity_id", "talent_id", "status", "cover_letter",
		"created_at", "updated_at", "first_response_at", "contacted_at", "viewed_at",
	}).AddRow(id, "opp-1", "talent-1", status, "hello", now, now, firstResponseAt, contactedAt, viewedAt)
}

func TestUpdateApplicationStatus_FirstResponseStampsMarkers(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM applications(.|\n)*WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", models.ApplicationStatusPending, nil, nil, nil))
	mock.ExpectExec(`UPDATE applications`).
		WithArgs(
			"app-1",
			models.ApplicationStatusContacted,
			sqlmock.AnyArg(), // updated_at
			sqlmock.AnyArg(), // first_response_at, freshly stamped
			sqlmock.AnyArg(), // contacted_at, freshly stamped
			nil,              // viewed_at untouched
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))

	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, db, allowingQuota(), dispatcher)

	err = svc.UpdateApplicationStatus(context.Background(), models.ActorContext{UserID: "biz-1", Role: models.RoleBusiness}, "app-1", models.ApplicationStatusContacted)

	assert.NoError(t, err)
	assert.Len(t, dispatcher.requests, 1)
	assert.Equal(t, models.NotificationTypeStatusChanged, dispatcher.requests[0].Type)
	assert.Equal(t, "talent-1", dispatcher.requests[0].RecipientID)
	assert.Equal(t, "Backend Developer", dispatcher.requests[0].Data["opportunityTitle"])
	assert.Equal(t, models.ApplicationStatusContacted, dispatcher.requests[0].Data["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApplicationStatus_ExistingStampsNeverOverwritten(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	stamped := time.Now().UTC().Add(-48 * time.Hour)
	mock.ExpectQuery(`SELECT(.|\n)*FROM applications(.|\n)*WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", models.ApplicationStatusContacted, stamped, stamped, nil))
	mock.ExpectExec(`UPDATE applications`).
		WithArgs(
			"app-1",
			models.ApplicationStatusInterviewed,
			sqlmock.AnyArg(), // updated_at
			nil,              // already left pending long ago
			nil,              // already contacted
			nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	err = svc.UpdateApplicationStatus(context.Background(), models.ActorContext{Role: models.RoleBusiness}, "app-1", models.ApplicationStatusInterviewed)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApplicationStatus_ReviewedStampsViewedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM applications(.|\n)*WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", models.ApplicationStatusPending, nil, nil, nil))
	mock.ExpectExec(`UPDATE applications`).
		WithArgs(
			"app-1",
			models.ApplicationStatusReviewed,
			sqlmock.AnyArg(), // updated_at
			sqlmock.AnyArg(), // first_response_at
			nil,              // contacted_at only stamps on contacted
			sqlmock.AnyArg(), // viewed_at
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	err = svc.UpdateApplicationStatus(context.Background(), models.ActorContext{Role: models.RoleBusiness}, "app-1", models.ApplicationStatusReviewed)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApplicationStatus_UnknownApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM applications(.|\n)*WHERE id = \$1`).
		WithArgs("app-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	err = svc.UpdateApplicationStatus(context.Background(), models.ActorContext{Role: models.RoleBusiness}, "app-missing", models.ApplicationStatusReviewed)

	assert.True(t, marketerrors.IsCode(err, marketerrors.ErrCodeApplicationNotFound))
}

func TestUpdateApplicationStatus_TitleLookupFailureSkipsNotification(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM applications(.|\n)*WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", models.ApplicationStatusPending, nil, nil, nil))
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnError(errors.New("connection reset"))

	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, db, allowingQuota(), dispatcher)

	err = svc.UpdateApplicationStatus(context.Background(), models.ActorContext{Role: models.RoleBusiness}, "app-1", models.ApplicationStatusContacted)

	// The transition stands; the half-renderable notification is dropped.
	assert.NoError(t, err)
	assert.Empty(t, dispatcher.requests)
}

// ==========================
// Close Opportunity Tests
// ==========================

func TestCloseOpportunity_NotifiesEveryApplicant(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))
	mock.ExpectExec(`UPDATE opportunities`).
		WithArgs("opp-1", models.OpportunityStatusClosed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT talent_id FROM applications`).
		WithArgs("opp-1").
		WillReturnRows(sqlmock.NewRows([]string{"talent_id"}).
			AddRow("talent-1").
			AddRow("talent-2"))

	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, db, allowingQuota(), dispatcher)

	err = svc.CloseOpportunity(context.Background(), models.ActorContext{Role: models.RoleBusiness}, "opp-1")

	assert.NoError(t, err)
	assert.Len(t, dispatcher.requests, 2)
	for _, req := range dispatcher.requests {
		assert.Equal(t, models.NotificationTypeOpportunityClosed, req.Type)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseOpportunity_ApplicantLookupFailureStillSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM opportunities o(.|\n)*WHERE o.id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(opportunityRow("opp-1", models.OpportunityStatusActive))
	mock.ExpectExec(`UPDATE opportunities`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT talent_id FROM applications`).
		WillReturnError(errors.New("read timeout"))

	svc := newTestService(t, db, allowingQuota(), &fakeDispatcher{})

	err = svc.CloseOpportunity(context.Background(), models.ActorContext{Role: models.RoleBusiness}, "opp-1")

	assert.NoError(t, err)
}
