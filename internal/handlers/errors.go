package handlers

import (
	"errors"
	"net/http"

	"github.com/cardcycle/backend/internal/models"
	"github.com/cardcycle/backend/internal/services"
)

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindUpstreamFetch:
		return http.StatusBadGateway
	}
	if errors.Is(err, services.ErrQueueFull) || errors.Is(err, services.ErrQueueClosed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func sendServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	services.SendErrorResponse(w, message, status, nil)
}
