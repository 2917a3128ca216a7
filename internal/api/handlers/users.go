package handlers

import (
	"net/http"

	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/api/validation"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/users"
)

type UserHandler struct {
	users *users.Service
	rs    *Responder
}

func NewUserHandler(svc *users.Service, rs *Responder) *UserHandler {
	return &UserHandler{users: svc, rs: rs}
}

// List returns every account. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserDTOs(list))
}

// ListAEs returns the active account executives.
func (h *UserHandler) ListAEs(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.ListAEs(r.Context())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserDTOs(list))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	user, err := h.users.Get(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserDTO(user))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	var req dto.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	in := users.UpdateInput{
		FirstName: validation.SanitizePtr(req.FirstName),
		LastName:  validation.SanitizePtr(req.LastName),
		Email:     req.Email,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		in.Role = &role
	}

	user, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserDTO(user))
}

func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	var req dto.UserStatusRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.users.SetStatus(r.Context(), id, *req.IsActive)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserDTO(user))
}
