package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"cratedigger/internal/models"
	"cratedigger/internal/services"
	"cratedigger/internal/utils"
)

type CrateHandler struct {
	crateService      services.CrateService
	suggestionService services.SuggestionService
}

func NewCrateHandler(crateService services.CrateService, suggestionService services.SuggestionService) *CrateHandler {
	return &CrateHandler{crateService: crateService, suggestionService: suggestionService}
}

func (h *CrateHandler) CreateCrate(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}

	var req models.CreateCrateRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}

	crate, err := h.crateService.CreateCrate(r.Context(), id.UserID(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, models.CrateResponse{Crate: crate})
}

func (h *CrateHandler) GetCrates(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}

	crates, err := h.crateService.GetCrates(r.Context(), id.UserID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if crates == nil {
		crates = []models.Crate{}
	}
	utils.RespondWithJSON(w, http.StatusOK, models.CratesResponse{Crates: crates})
}

func (h *CrateHandler) SuggestAlbums(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}

	var req models.SuggestRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.suggestionService.Suggest(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Debug().Str("crateID", req.CrateID).Int("suggestions", len(resp.Suggestions)).Int("candidates", resp.CandidatesCount).Msg("Suggestions returned")
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
