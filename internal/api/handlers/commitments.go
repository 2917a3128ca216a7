package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/api/validation"
	"github.com/hugh/salespulse/internal/performance"
	"github.com/hugh/salespulse/internal/week"
)

// PerformanceHandler serves commitments, results, daily goals and the
// attainment report.
type PerformanceHandler struct {
	perf *performance.Service
	cal  *week.Calendar
	rs   *Responder
}

func NewPerformanceHandler(svc *performance.Service, cal *week.Calendar, rs *Responder) *PerformanceHandler {
	return &PerformanceHandler{perf: svc, cal: cal, rs: rs}
}

// targetUser reads ?user_id= (or ?userId=), defaulting to the caller.
func targetUser(r *http.Request) (uuid.UUID, error) {
	id, err := validation.QueryUUID(r, "user_id", "userId")
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return middleware.GetUserID(r.Context()), nil
	}
	return id, nil
}

// userWeek reads the {userId} and {weekStart} path parameters.
func userWeek(r *http.Request) (uuid.UUID, week.Date, error) {
	userID, err := validation.UUIDParam(r, "userId")
	if err != nil {
		return uuid.Nil, week.Date{}, err
	}
	weekStart, err := validation.DateParam(r, "weekStart")
	if err != nil {
		return uuid.Nil, week.Date{}, err
	}
	return userID, weekStart, nil
}

func historyLimit(r *http.Request) (int, error) {
	return validation.QueryInt(r, "limit", 12, 1, 52)
}

// ListCommitments returns the caller's commitments, or another user's
// when ?user_id= is given and the caller may see them.
func (h *PerformanceHandler) ListCommitments(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	limit, err := historyLimit(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	rows, err := h.perf.CommitmentHistory(r.Context(), middleware.GetActor(r.Context()), userID, limit)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *PerformanceHandler) SaveCommitment(w http.ResponseWriter, r *http.Request) {
	var req dto.CommitmentRequest
	if !decode(w, r, &req) {
		return
	}

	view, err := h.perf.SaveCommitment(r.Context(), middleware.GetUserID(r.Context()), req.Targets())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CurrentCommitment writes null when nothing was committed this week.
func (h *PerformanceHandler) CurrentCommitment(w http.ResponseWriter, r *http.Request) {
	view, err := h.perf.CurrentCommitment(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PerformanceHandler) CommitmentHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := historyLimit(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	actor := middleware.GetActor(r.Context())
	rows, err := h.perf.CommitmentHistory(r.Context(), actor, actor.ID, limit)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *PerformanceHandler) UserCommitmentForWeek(w http.ResponseWriter, r *http.Request) {
	userID, weekStart, err := userWeek(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	view, err := h.perf.CommitmentForWeek(r.Context(), middleware.GetActor(r.Context()), userID, weekStart)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PerformanceHandler) UserCommitmentHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := validation.UUIDParam(r, "userId")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	limit, err := historyLimit(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	rows, err := h.perf.CommitmentHistory(r.Context(), middleware.GetActor(r.Context()), userID, limit)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
