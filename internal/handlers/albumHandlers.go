package handlers

import (
	"net/http"

	"cratedigger/internal/models"
	"cratedigger/internal/services"
	"cratedigger/internal/utils"
)

type AlbumHandler struct {
	albumService      services.AlbumService
	assignmentService services.AssignmentService
}

func NewAlbumHandler(albumService services.AlbumService, assignmentService services.AssignmentService) *AlbumHandler {
	return &AlbumHandler{albumService: albumService, assignmentService: assignmentService}
}

func respondAlbums(w http.ResponseWriter, albums []models.SavedAlbum) {
	if albums == nil {
		albums = []models.SavedAlbum{}
	}
	utils.RespondWithJSON(w, http.StatusOK, models.AlbumsResponse{Albums: albums})
}

func (h *AlbumHandler) GetLiveAlbums(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}
	albums, err := h.albumService.ListLive(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondAlbums(w, albums)
}

func (h *AlbumHandler) GetMyAlbums(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}
	albums, err := h.albumService.ListCached(r.Context(), id.UserID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondAlbums(w, albums)
}

func (h *AlbumHandler) GetEras(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}
	eras, err := h.albumService.Eras(r.Context(), id.UserID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if eras == nil {
		eras = []models.Era{}
	}
	utils.RespondWithJSON(w, http.StatusOK, models.ErasResponse{Eras: eras})
}

func (h *AlbumHandler) SaveAlbums(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}
	inserted, err := h.albumService.Resync(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.ResyncResponse{Inserted: inserted})
}

func (h *AlbumHandler) AssignAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}

	var req models.AssignAlbumRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.assignmentService.Assign(r.Context(), id.UserID(), req); err != nil {
		writeError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

func (h *AlbumHandler) ClearAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}

	albumID := r.URL.Query().Get("album_id")
	if albumID == "" {
		utils.SendJSONError(w, "album_id is required", http.StatusBadRequest)
		return
	}

	if err := h.assignmentService.Clear(r.Context(), id.UserID(), albumID); err != nil {
		writeError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

func (h *AlbumHandler) AssignBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}

	var req models.BatchAssignRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}

	updated, err := h.assignmentService.AssignBatch(r.Context(), id.UserID(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.BatchAssignResponse{Updated: updated})
}
