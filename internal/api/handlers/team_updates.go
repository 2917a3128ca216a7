package handlers

import (
	"context"
	"net/http"

	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/api/validation"
	"github.com/hugh/salespulse/internal/hub"
	"github.com/hugh/salespulse/internal/storage"
)

// Presigner is satisfied by *storage.S3Presigner.
type Presigner interface {
	Presign(ctx context.Context, fileName, contentType string) (*storage.Upload, error)
}

type TeamUpdateHandler struct {
	hub     *hub.Service
	uploads Presigner
	rs      *Responder
}

// NewTeamUpdateHandler builds the handler. uploads may be nil when no
// bucket is configured.
func NewTeamUpdateHandler(svc *hub.Service, uploads Presigner, rs *Responder) *TeamUpdateHandler {
	return &TeamUpdateHandler{hub: svc, uploads: uploads, rs: rs}
}

func (h *TeamUpdateHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.hub.List(r.Context(), hub.Filter{
		Category: validation.Query(r, "category"),
		Section:  validation.Query(r, "section"),
		Query:    validation.Query(r, "q", "search"),
	})
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: list, Count: len(list)})
}

type categoriesResponse struct {
	Categories []hub.Category      `json:"categories"`
	Counts     []hub.CategoryCount `json:"counts"`
}

func (h *TeamUpdateHandler) Categories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.hub.CategoryCounts(r.Context())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: hub.Categories(), Counts: counts})
}

// Get also records the view for the caller's recents.
func (h *TeamUpdateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	update, err := h.hub.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *TeamUpdateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTeamUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	req.Title = validation.SanitizeString(req.Title)
	req.Content = validation.SanitizeString(req.Content)
	req.Section = validation.SanitizePtr(req.Section)

	update, err := h.hub.Create(r.Context(), middleware.GetUserID(r.Context()), req.Input())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, update)
}

func (h *TeamUpdateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	var req dto.UpdateTeamUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	req.Title = validation.SanitizePtr(req.Title)
	req.Content = validation.SanitizePtr(req.Content)
	req.Section = validation.SanitizePtr(req.Section)

	update, err := h.hub.Update(r.Context(), id, req.Input())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *TeamUpdateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	if err := h.hub.Delete(r.Context(), id); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamUpdateHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkTeamUpdateRequest
	if !decode(w, r, &req) {
		return
	}

	updated, err := h.hub.BulkUpdate(r.Context(), hub.BulkInput{
		IDs:      req.IDs,
		Category: req.Category,
		Section:  validation.SanitizePtr(req.Section),
	})
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BulkUpdateResponse{Updated: updated})
}

func (h *TeamUpdateHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	if err := h.hub.AddFavorite(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *TeamUpdateHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	if err := h.hub.RemoveFavorite(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *TeamUpdateHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	list, err := h.hub.Favorites(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TeamUpdateHandler) Recents(w http.ResponseWriter, r *http.Request) {
	limit, err := validation.QueryInt(r, "limit", 10, 1, 50)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	list, err := h.hub.Recents(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Upload returns a presigned PUT for a hub file. The client stores the
// returned file_url on the update.
func (h *TeamUpdateHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "File uploads are not configured"})
		return
	}

	var req dto.UploadRequest
	if !decode(w, r, &req) {
		return
	}

	upload, err := h.uploads.Presign(r.Context(), req.FileName, req.ContentType)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}
