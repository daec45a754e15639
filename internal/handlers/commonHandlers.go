package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/database"
	"cratedigger/internal/utils"
)

type CommonHandler struct {
	db database.Service
}

func NewCommonHandler(db database.Service) *CommonHandler {
	return &CommonHandler{db: db}
}

func (h *CommonHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	stats := h.db.Health()
	status := http.StatusOK
	if stats["message"] != "It's healthy" {
		status = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, status, stats)
}

// writeError maps a service error onto its status and client message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	utils.SendJSONError(w, apperrors.Message(err), status)
}
