// cmd/dashboard-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"talent-marketplace/internal/common/aws"
	"talent-marketplace/internal/common/config"
	"talent-marketplace/internal/common/database"
	marketerrors "talent-marketplace/internal/common/errors"
	"talent-marketplace/internal/common/logger"
	"talent-marketplace/internal/common/observability"
	"talent-marketplace/internal/marketplace/dashboard"
	"talent-marketplace/internal/marketplace/discovery"
	"talent-marketplace/internal/marketplace/identity"
	"talent-marketplace/internal/marketplace/notify"
	"talent-marketplace/internal/marketplace/opportunities"
	"talent-marketplace/internal/marketplace/quota"
	"talent-marketplace/internal/models"
	"talent-marketplace/pkg/categories"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting dashboard manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("dashboard-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init AWS clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}
	zapLog.Info("AWS clients initialized")

	// --- Wire marketplace services ---
	registry := categories.Default
	if path := os.Getenv("CATEGORY_REGISTRY_PATH"); path != "" {
		registry, err = categories.Load(path)
		if err != nil {
			zapLog.Fatal("category registry load failed", zap.Error(err))
		}
	}

	resolver := identity.NewResolver(pg.GetDB(), redis.GetClient(), log)
	notifier := notify.NewNotifier(cfg.Notifications, pg.GetDB(), sesClient, snsClient, log)
	quotaChecker := quota.NewChecker(redis.GetClient(), cfg.Quota, log)
	repo := opportunities.NewRepository(pg.GetDB())
	svc := opportunities.NewService(repo, quotaChecker, notifier, log)

	useMock := os.Getenv("USE_MOCK_DATA") == "true"
	dash := dashboard.New(svc, useMock, log)
	source := discovery.NewSource(esClient.GetClient(), cfg.Discovery, log)

	api := &apiServer{
		service:  svc,
		dash:     dash,
		source:   source,
		registry: registry,
		resolver: resolver,
		logger:   log,
	}

	mux := http.DefaultServeMux
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/dashboard", api.handleDashboard)
	mux.HandleFunc("/api/applications", api.handleApply)
	mux.HandleFunc("/api/applications/status", api.handleUpdateStatus)
	mux.HandleFunc("/api/opportunities/close", api.handleClose)
	mux.HandleFunc("/api/talents/search", api.handleSearch)

	address := cfg.Metrics.Address
	if address == "" {
		address = ":8080"
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", address))
		if err := http.ListenAndServe(address, mux); err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping dashboard manager...")
}

// profileSource is the slice of discovery.Source the search handler needs.
type profileSource interface {
	FetchProfiles(ctx context.Context, searchText string, page int) ([]models.TalentProfile, int64, error)
}

type apiServer struct {
	service  *opportunities.Service
	dash     *dashboard.Dashboard
	source   profileSource
	registry categories.Registry
	resolver *identity.Resolver
	logger   logger.Logger
}

// actorFromRequest builds the caller identity from the gateway headers.
// The upstream gateway authenticates; this service only scopes by role.
// Business callers that omit X-Company-Id get their company scope
// resolved from ownership, with a redis cache in front.
func (s *apiServer) actorFromRequest(r *http.Request) models.ActorContext {
	actor := models.ActorContext{
		UserID:    r.Header.Get("X-User-Id"),
		Role:      models.Role(r.Header.Get("X-User-Role")),
		CompanyID: r.Header.Get("X-Company-Id"),
		Location:  r.Header.Get("X-User-Location"),
	}
	if actor.Role.IsBusinessSide() && actor.CompanyID == "" {
		companyID, err := s.resolver.CompanyFor(r.Context(), actor.UserID)
		if err != nil {
			s.logger.Warn("company scope resolution failed", map[string]interface{}{
				"userId": actor.UserID,
				"error":  err,
			})
		} else {
			actor.CompanyID = companyID
		}
	}
	return actor
}

func (s *apiServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := s.dash.Refresh(r.Context(), s.actorFromRequest(r))
	writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		OpportunityID string `json:"opportunityId"`
		CoverLetter   string `json:"coverLetter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	app, err := s.service.Apply(r.Context(), s.actorFromRequest(r), body.OpportunityID, body.CoverLetter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *apiServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ApplicationID string `json:"applicationId"`
		Status        string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.service.UpdateApplicationStatus(r.Context(), s.actorFromRequest(r), body.ApplicationID, body.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

func (s *apiServer) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		OpportunityID string `json:"opportunityId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.service.CloseOpportunity(r.Context(), s.actorFromRequest(r), body.OpportunityID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		discovery.Criteria
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	profiles, total, err := s.source.FetchProfiles(r.Context(), body.SearchText, body.Page)
	if err != nil {
		writeError(w, err)
		return
	}
	ranked := discovery.FilterAndSort(profiles, body.Criteria, s.registry)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"talents":   ranked,
		"totalHits": total,
		"page":      body.Page,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if marketerrors.IsGuardRejection(err) {
		status = http.StatusConflict
	}
	if marketerrors.IsCode(err, marketerrors.ErrCodeOpportunityNotFound) ||
		marketerrors.IsCode(err, marketerrors.ErrCodeApplicationNotFound) {
		status = http.StatusNotFound
	}
	if marketerrors.IsCode(err, marketerrors.ErrCodeApplicationValidation) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(marketerrors.CodeOf(err)),
	})
}
