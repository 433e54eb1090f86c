// internal/marketplace/opportunities/service.go

// Package opportunities is the single source of truth for opportunity and
// application lists scoped to the current actor, and for the mutations
// against them. Mutations never patch local state: callers refetch, so
// nothing is displayed that the backend has not confirmed.
package opportunities

import (
	"context"
	"errors"
	"time"

	marketerrors "talent-marketplace/internal/common/errors"
	"talent-marketplace/internal/common/logger"
	"talent-marketplace/internal/common/metrics"
	"talent-marketplace/internal/marketplace/notify"
	"talent-marketplace/internal/marketplace/quota"
	"talent-marketplace/internal/marketplace/visibility"
	"talent-marketplace/internal/models"

	"github.com/google/uuid"
)

// Dispatcher is the best-effort notification sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notify.Request)
}

// QuotaChecker guards the monthly application limit.
type QuotaChecker interface {
	Check(ctx context.Context, userID string, role models.Role) (quota.Status, error)
	Record(ctx context.Context, userID string)
}

type Service struct {
	repo     *Repository
	quota    QuotaChecker
	notifier Dispatcher
	logger   logger.Logger
}

func NewService(repo *Repository, quotaChecker QuotaChecker, notifier Dispatcher, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		quota:    quotaChecker,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "opportunities"}),
	}
}

// FetchOpportunities returns the opportunity list shaped for the actor's
// role. Talents see active opportunities narrowed by the country
// restriction; business actors see their company's postings plus recent
// drafts. A business actor with no resolved company gets an empty set,
// not an error.
func (s *Service) FetchOpportunities(ctx context.Context, actor models.ActorContext) ([]models.Opportunity, error) {
	start := time.Now()
	role := string(actor.Role)

	var opps []models.Opportunity
	var err error
	switch {
	case actor.Role.IsBusinessSide():
		if actor.CompanyID == "" {
			s.logger.Warn("business actor without resolved company, returning empty set", map[string]interface{}{
				"userId": actor.UserID,
			})
			metrics.OpportunityFetches.WithLabelValues(role, "empty_scope").Inc()
			return []models.Opportunity{}, nil
		}
		opps, err = s.repo.ListForCompany(ctx, actor.CompanyID)
	default:
		opps, err = s.repo.ListActive(ctx)
		if err == nil {
			opps = visibility.FilterForTalent(opps, actor.Location)
		}
	}

	metrics.FetchDuration.WithLabelValues("opportunities").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OpportunityFetches.WithLabelValues(role, "error").Inc()
		s.logger.Error("opportunity fetch failed", map[string]interface{}{
			"userId": actor.UserID,
			"role":   role,
			"error":  err,
		})
		return nil, marketerrors.NewQueryExecutionFailedError("fetch_opportunities", err)
	}

	metrics.OpportunityFetches.WithLabelValues(role, "ok").Inc()
	return opps, nil
}

// FetchApplications returns every application against the actor's company
// opportunities, the input to the metrics aggregator.
func (s *Service) FetchApplications(ctx context.Context, actor models.ActorContext) ([]models.Application, error) {
	if actor.CompanyID == "" {
		return []models.Application{}, nil
	}

	start := time.Now()
	apps, err := s.repo.ListApplicationsForCompany(ctx, actor.CompanyID)
	metrics.FetchDuration.WithLabelValues("applications").Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("application fetch failed", map[string]interface{}{
			"companyId": actor.CompanyID,
			"error":     err,
		})
		return nil, marketerrors.NewQueryExecutionFailedError("fetch_applications", err)
	}
	return apps, nil
}

// Apply submits an application on behalf of a talent. Guards run in
// order, each with its own failure mode: role and payload validation, opportunity
// existence and status, duplicate check, monthly quota. Only after every
// guard passes is the application inserted as pending. The owner
// notification afterwards is best-effort and can never fail the call.
func (s *Service) Apply(ctx context.Context, actor models.ActorContext, opportunityID, coverLetter string) (*models.Application, error) {
	if !actor.Role.IsTalentSide() {
		rejection := marketerrors.NewApplicationValidationError("only talent accounts can apply")
		s.rejected("apply", rejection)
		return nil, rejection
	}
	if err := validateApplyPayload(opportunityID, coverLetter); err != nil {
		s.rejected("apply", err)
		return nil, err
	}

	opp, err := s.repo.GetOpportunity(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			rejection := marketerrors.NewOpportunityNotFoundError(opportunityID)
			s.rejected("apply", rejection)
			return nil, rejection
		}
		return nil, marketerrors.NewQueryExecutionFailedError("get_opportunity", err)
	}
	if opp.Status == models.OpportunityStatusClosed {
		rejection := marketerrors.NewOpportunityClosedError(opportunityID)
		s.rejected("apply", rejection)
		return nil, rejection
	}
	if !opp.AcceptsApplications() {
		rejection := marketerrors.NewOpportunityNotActiveError(opportunityID, opp.Status)
		s.rejected("apply", rejection)
		return nil, rejection
	}

	exists, err := s.repo.ApplicationExists(ctx, opportunityID, actor.UserID)
	if err != nil {
		return nil, marketerrors.NewQueryExecutionFailedError("duplicate_check", err)
	}
	if exists {
		rejection := marketerrors.NewDuplicateApplicationError(opportunityID, actor.UserID)
		s.rejected("apply", rejection)
		return nil, rejection
	}

	status, err := s.quota.Check(ctx, actor.UserID, actor.Role)
	if err != nil {
		return nil, marketerrors.NewQueryExecutionFailedError("quota_check", err)
	}
	if !status.CanApply {
		rejection := marketerrors.NewQuotaExceededError(status.Current, status.Limit)
		s.rejected("apply", rejection)
		return nil, rejection
	}

	app := models.Application{
		ID:            uuid.New().String(),
		OpportunityID: opportunityID,
		TalentID:      actor.UserID,
		Status:        models.ApplicationStatusPending,
		CoverLetter:   coverLetter,
		CreatedAt:     time.Now().UTC(),
	}
	app.UpdatedAt = app.CreatedAt

	if err := s.repo.InsertApplication(ctx, app); err != nil {
		metrics.MutationsTotal.WithLabelValues("apply", "error").Inc()
		return nil, marketerrors.NewDatabaseInsertFailedError(err)
	}

	s.quota.Record(ctx, actor.UserID)
	metrics.MutationsTotal.WithLabelValues("apply", "ok").Inc()
	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"opportunityId": opportunityID,
		"talentId":      actor.UserID,
	})

	s.notifyOwner(ctx, opp, app)

	return &app, nil
}

// UpdateApplicationStatus transitions an application, stamping the
// monotonic response markers. first_response_at is set the first time the
// status leaves pending; contacted_at only when the new status is exactly
// contacted; viewed_at on reviewed when not previously viewed. Stamps are
// never overwritten once set.
func (s *Service) UpdateApplicationStatus(ctx context.Context, actor models.ActorContext, applicationID, newStatus string) error {
	app, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			rejection := marketerrors.NewApplicationNotFoundError(applicationID)
			s.rejected("update_status", rejection)
			return rejection
		}
		return marketerrors.NewQueryExecutionFailedError("get_application", err)
	}

	now := time.Now().UTC()
	var firstResponseAt, contactedAt, viewedAt *time.Time

	if app.Status == models.ApplicationStatusPending &&
		newStatus != models.ApplicationStatusPending &&
		app.FirstResponseAt == nil {
		firstResponseAt = &now
	}
	if newStatus == models.ApplicationStatusContacted && app.ContactedAt == nil {
		contactedAt = &now
	}
	if newStatus == models.ApplicationStatusReviewed && app.ViewedAt == nil {
		viewedAt = &now
	}

	if err := s.repo.UpdateApplicationStatus(ctx, applicationID, newStatus, firstResponseAt, contactedAt, viewedAt); err != nil {
		metrics.MutationsTotal.WithLabelValues("update_status", "error").Inc()
		return marketerrors.NewQueryExecutionFailedError("update_application_status", err)
	}

	metrics.MutationsTotal.WithLabelValues("update_status", "ok").Inc()
	s.logger.Info("application status updated", map[string]interface{}{
		"applicationId": applicationID,
		"from":          app.Status,
		"to":            newStatus,
	})

	s.notifyStatusChanged(ctx, app, newStatus)

	return nil
}

// notifyStatusChanged tells the talent about the transition. The template
// names the opportunity, so the title is resolved first; if that lookup
// fails the dispatch is skipped rather than sent half-rendered.
func (s *Service) notifyStatusChanged(ctx context.Context, app models.Application, newStatus string) {
	opp, err := s.repo.GetOpportunity(ctx, app.OpportunityID)
	if err != nil {
		s.logger.Warn("opportunity lookup failed for status notification", map[string]interface{}{
			"opportunityId": app.OpportunityID,
			"error":         err,
		})
		return
	}
	s.notifier.Dispatch(ctx, notify.Request{
		RecipientID:   app.TalentID,
		Type:          models.NotificationTypeStatusChanged,
		ApplicationID: app.ID,
		OpportunityID: app.OpportunityID,
		Data: map[string]string{
			"opportunityTitle": opp.Title,
			"status":           newStatus,
		},
	})
}

// CloseOpportunity sets the opportunity to closed, then fans out a
// best-effort notification to every current applicant. Notification
// failures are logged inside the notifier, never propagated.
func (s *Service) CloseOpportunity(ctx context.Context, actor models.ActorContext, opportunityID string) error {
	opp, err := s.repo.GetOpportunity(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			rejection := marketerrors.NewOpportunityNotFoundError(opportunityID)
			s.rejected("close", rejection)
			return rejection
		}
		return marketerrors.NewQueryExecutionFailedError("get_opportunity", err)
	}

	if err := s.repo.SetOpportunityStatus(ctx, opportunityID, models.OpportunityStatusClosed); err != nil {
		metrics.MutationsTotal.WithLabelValues("close", "error").Inc()
		return marketerrors.NewQueryExecutionFailedError("close_opportunity", err)
	}

	metrics.MutationsTotal.WithLabelValues("close", "ok").Inc()
	s.logger.Info("opportunity closed", map[string]interface{}{
		"opportunityId": opportunityID,
		"companyId":     opp.CompanyID,
	})

	applicants, err := s.repo.ListApplicants(ctx, opportunityID)
	if err != nil {
		s.logger.Warn("applicant fanout lookup failed", map[string]interface{}{
			"opportunityId": opportunityID,
			"error":         err,
		})
		return nil
	}
	for _, talentID := range applicants {
		s.notifier.Dispatch(ctx, notify.Request{
			RecipientID:   talentID,
			Type:          models.NotificationTypeOpportunityClosed,
			OpportunityID: opportunityID,
			Data: map[string]string{
				"opportunityTitle": opp.Title,
			},
		})
	}

	return nil
}

func (s *Service) notifyOwner(ctx context.Context, opp models.Opportunity, app models.Application) {
	ownerID, err := s.repo.GetOpportunityOwner(ctx, opp.ID)
	if err != nil {
		s.logger.Warn("owner lookup failed for application notification", map[string]interface{}{
			"opportunityId": opp.ID,
			"error":         err,
		})
		return
	}
	s.notifier.Dispatch(ctx, notify.Request{
		RecipientID:   ownerID,
		Type:          models.NotificationTypeNewApplication,
		Priority:      models.NotificationPriorityHigh,
		OpportunityID: opp.ID,
		ApplicationID: app.ID,
		Data: map[string]string{
			"opportunityTitle": opp.Title,
		},
	})
}

func (s *Service) rejected(operation string, err error) {
	metrics.GuardRejections.WithLabelValues(operation, string(marketerrors.CodeOf(err))).Inc()
}
