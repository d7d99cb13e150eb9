package handlers

import (
	"context"
	"net/http"

	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/logger"
	"github.com/cardcycle/backend/internal/models"
	"github.com/cardcycle/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CycleReader lists stored cycles across a user's accounts, newest first.
type CycleReader interface {
	ListCyclesForUser(ctx context.Context, userID string) ([]models.BillingCycle, error)
}

// JobQueue accepts asynchronous recompute requests.
type JobQueue interface {
	Enqueue(job services.RecomputeJob) error
}

// ReportReader returns the last repair report of an account.
type ReportReader interface {
	Get(ctx context.Context, accountID string) (*models.RepairReport, error)
}

type CycleHandler struct {
	cycles    CycleReader
	queue     JobQueue
	repairer  services.Repairer
	reports   ReportReader
	validator *services.ValidationHelper
	log       zerolog.Logger
}

func NewCycleHandler(cycles CycleReader, queue JobQueue, repairer services.Repairer, reports ReportReader, log zerolog.Logger) *CycleHandler {
	return &CycleHandler{
		cycles:    cycles,
		queue:     queue,
		repairer:  repairer,
		reports:   reports,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

func (h *CycleHandler) requestLog(r *http.Request) zerolog.Logger {
	return logger.Component(logger.FromContext(r.Context(), h.log), "cycle_handler")
}

// ListUserCycles returns every billing cycle of a user. is_current is the
// flag written by the account's last repair, so between repairs the open
// cycle keeps the end date of that repair day.
// @Summary List billing cycles
// @Description All billing cycles across the user's credit accounts, newest end date first
// @Tags Cycles
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} object{cycles=[]models.BillingCycle}
// @Failure 400 {object} services.ErrorResponse
// @Router /users/{userID}/cycles [get]
func (h *CycleHandler) ListUserCycles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.validator.ValidateVar(userID, "required,max=128"); err != nil {
		services.SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	cycles, err := h.cycles.ListCyclesForUser(r.Context(), userID)
	if err != nil {
		log := h.requestLog(r)
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list cycles")
		sendServiceError(w, err)
		return
	}

	if cycles == nil {
		cycles = []models.BillingCycle{}
	}

	services.SendJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

// Resync queues a fetch-and-repair of one account
// @Summary Resync account
// @Description Queue a refresh of the account's transactions and metadata followed by a cycle repair
// @Tags Cycles
// @Produce json
// @Param accountID path string true "Account ID"
// @Param mode query string false "preview or backfill"
// @Success 202 {object} object{status=string,account_id=string,mode=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /accounts/{accountID}/resync [post]
func (h *CycleHandler) Resync(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	mode, err := config.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := h.queue.Enqueue(services.RecomputeJob{AccountID: accountID, Mode: mode, Trigger: services.TriggerResync}); err != nil {
		log := h.requestLog(r)
		log.Warn().Err(err).Str("account_id", accountID).Msg("Failed to queue resync")
		sendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"account_id": accountID,
		"mode":       string(mode),
	})
}

// Regenerate recomputes an account's cycles from stored data
// @Summary Regenerate cycles
// @Description Synchronously repair the account's cycles from stored transactions and metadata
// @Tags Cycles
// @Produce json
// @Param accountID path string true "Account ID"
// @Success 200 {object} models.RepairReport
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountID}/regenerate [post]
func (h *CycleHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	report, err := h.repairer.Repair(r.Context(), accountID, config.ModeBackfill)
	if err != nil {
		log := h.requestLog(r)
		log.Error().Err(err).Str("account_id", accountID).Msg("Regenerate failed")
		sendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, report)
}

// GetRepairReport returns the last repair report of an account
// @Summary Last repair report
// @Tags Cycles
// @Produce json
// @Param accountID path string true "Account ID"
// @Success 200 {object} models.RepairReport
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountID}/repair-report [get]
func (h *CycleHandler) GetRepairReport(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	report, err := h.reports.Get(r.Context(), accountID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	services.SendJSON(w, http.StatusOK, report)
}

func (h *CycleHandler) accountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID := chi.URLParam(r, "accountID")
	if err := h.validator.ValidateVar(accountID, "required,max=128"); err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return "", false
	}
	return accountID, true
}
