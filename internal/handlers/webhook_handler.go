package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/logger"
	"github.com/cardcycle/backend/internal/services"
	"github.com/rs/zerolog"
)

// Aggregator webhook types and the recompute window each one asks for.
var webhookModes = map[string]config.Mode{
	"INITIAL_UPDATE":       config.ModePreview,
	"HISTORICAL_UPDATE":    config.ModeBackfill,
	"DEFAULT_UPDATE":       config.ModeBackfill,
	"TRANSACTIONS_REMOVED": config.ModeBackfill,
}

type WebhookHandler struct {
	queue     JobQueue
	validator *services.ValidationHelper
	log       zerolog.Logger
}

func NewWebhookHandler(queue JobQueue, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		queue:     queue,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

func (h *WebhookHandler) requestLog(r *http.Request) zerolog.Logger {
	return logger.Component(logger.FromContext(r.Context(), h.log), "webhook_handler")
}

type webhookRequest struct {
	WebhookType string   `json:"webhook_type" validate:"required"`
	AccountIDs  []string `json:"account_ids" validate:"required,min=1,dive,required,max=128"`
}

// HandleAggregatorWebhook queues recomputes for the accounts a webhook names.
// Accounts the queue turns away are listed under rejected; the request only
// fails with 503 when none could be queued.
// @Summary Aggregator webhook
// @Description Queue cycle recomputes for accounts with new upstream data
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body object{webhook_type=string,account_ids=[]string} true "Webhook payload"
// @Success 202 {object} object{status=string,queued=int,rejected=[]string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /webhooks/aggregator [post]
func (h *WebhookHandler) HandleAggregatorWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	log := h.requestLog(r)

	mode, ok := webhookModes[req.WebhookType]
	if !ok {
		log.Info().Str("webhook_type", req.WebhookType).Msg("Ignoring webhook")
		services.SendJSON(w, http.StatusOK, map[string]any{"status": "ignored", "queued": 0})
		return
	}

	var (
		queued   int
		rejected []string
		lastErr  error
	)
	for _, accountID := range req.AccountIDs {
		job := services.RecomputeJob{AccountID: accountID, Mode: mode, Trigger: services.TriggerWebhook}
		if err := h.queue.Enqueue(job); err != nil {
			log.Error().Err(err).Str("account_id", accountID).Msg("Failed to queue webhook recompute")
			rejected = append(rejected, accountID)
			lastErr = err
			continue
		}
		queued++
	}

	if queued == 0 {
		sendServiceError(w, lastErr)
		return
	}

	log.Info().Str("webhook_type", req.WebhookType).Int("queued", queued).Int("rejected", len(rejected)).Msg("Webhook accepted")
	resp := map[string]any{"status": "queued", "queued": queued}
	if len(rejected) > 0 {
		resp["rejected"] = rejected
	}
	services.SendJSON(w, http.StatusAccepted, resp)
}
