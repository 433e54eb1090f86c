// internal/marketplace/dashboard/dashboard.go

// Package dashboard merges the opportunity repository output with the
// application metrics aggregator into the view-model the dashboard
// components consume, with a mock mode that bypasses the backend.
package dashboard

import (
	"context"
	"sync"
	"time"

	"talent-marketplace/internal/common/logger"
	"talent-marketplace/internal/marketplace/appmetrics"
	"talent-marketplace/internal/models"
)

// Fetcher is the repository surface the dashboard composes over.
type Fetcher interface {
	FetchOpportunities(ctx context.Context, actor models.ActorContext) ([]models.Opportunity, error)
	FetchApplications(ctx context.Context, actor models.ActorContext) ([]models.Application, error)
}

// Snapshot is the composed, display-ready dashboard state. Mock and real
// refreshes produce the same shape so consumers are mock-agnostic.
type Snapshot struct {
	Opportunities     []models.Opportunity     `json:"opportunities"`
	Metrics           models.DashboardMetrics  `json:"metrics"`
	ApplicationCounts map[string]int           `json:"applicationCounts"`
	FetchedAt         time.Time                `json:"fetchedAt"`
	Err               error                    `json:"-"`
}

type Dashboard struct {
	fetcher Fetcher
	useMock bool
	logger  logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight int
	current  Snapshot
}

// New builds a dashboard over the given fetcher. With useMock the
// backend is never touched and refreshes serve the static fixture.
func New(fetcher Fetcher, useMock bool, log logger.Logger) *Dashboard {
	return &Dashboard{
		fetcher: fetcher,
		useMock: useMock,
		logger:  log.WithFields(map[string]interface{}{"component": "dashboard"}),
		now:     time.Now,
	}
}

// Loading reports whether any refresh is still in flight. It is a single
// flag covering both upstream fetches: composition never starts until
// both have completed.
func (d *Dashboard) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight > 0
}

// Current returns the last composed snapshot.
func (d *Dashboard) Current() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Refresh fetches opportunities and applications, waits for both, and
// composes the snapshot. Overlapping refreshes are not serialized: the
// last writer wins, which can let a stale in-flight refresh overwrite a
// newer one. Accepted behavior, matching the absence of cancellation.
func (d *Dashboard) Refresh(ctx context.Context, actor models.ActorContext) Snapshot {
	d.mu.Lock()
	d.inflight++
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.inflight--
		d.mu.Unlock()
	}()

	var (
		opps    []models.Opportunity
		apps    []models.Application
		oppsErr error
		appsErr error
		wg      sync.WaitGroup
	)

	if d.useMock {
		opps, apps = mockOpportunities(), mockApplications()
	} else {
		wg.Add(2)
		go func() {
			defer wg.Done()
			opps, oppsErr = d.fetcher.FetchOpportunities(ctx, actor)
		}()
		go func() {
			defer wg.Done()
			apps, appsErr = d.fetcher.FetchApplications(ctx, actor)
		}()
		wg.Wait()
	}

	snap := d.compose(opps, apps)
	if oppsErr != nil {
		snap.Err = oppsErr
	} else if appsErr != nil {
		snap.Err = appsErr
	}
	if snap.Err != nil {
		// Degrade to empty data rather than failing the refresh.
		d.logger.Error("dashboard refresh degraded", map[string]interface{}{
			"userId": actor.UserID,
			"error":  snap.Err,
		})
	}

	d.mu.Lock()
	d.current = snap
	d.mu.Unlock()
	return snap
}

func (d *Dashboard) compose(opps []models.Opportunity, apps []models.Application) Snapshot {
	composed := dedupDrafts(applyDisplayDefaults(opps))
	m := appmetrics.Compute(apps, d.now())

	return Snapshot{
		Opportunities:     composed,
		Metrics:           m,
		ApplicationCounts: m.ApplicationsByOpportunity,
		FetchedAt:         d.now(),
	}
}

// applyDisplayDefaults fills fields that may be absent from the backend
// row. Display fallbacks only, never persisted.
func applyDisplayDefaults(opps []models.Opportunity) []models.Opportunity {
	out := make([]models.Opportunity, len(opps))
	for i, opp := range opps {
		if opp.LocationType == "" {
			opp.LocationType = "remote"
		}
		if opp.Skills == nil {
			opp.Skills = []string{}
		}
		out[i] = opp
	}
	return out
}

// dedupDrafts keeps, among draft opportunities sharing (title, company),
// only the one with the latest created_at. Non-draft statuses are never
// deduplicated.
func dedupDrafts(opps []models.Opportunity) []models.Opportunity {
	latest := make(map[string]models.Opportunity)
	for _, opp := range opps {
		if opp.Status != models.OpportunityStatusDraft {
			continue
		}
		key := opp.Title + "\x00" + opp.CompanyID
		if winner, ok := latest[key]; !ok || opp.CreatedAt.After(winner.CreatedAt) {
			latest[key] = opp
		}
	}

	out := make([]models.Opportunity, 0, len(opps))
	for _, opp := range opps {
		if opp.Status == models.OpportunityStatusDraft {
			key := opp.Title + "\x00" + opp.CompanyID
			if latest[key].ID != opp.ID {
				continue
			}
		}
		out = append(out, opp)
	}
	return out
}
