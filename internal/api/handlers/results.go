package handlers

import (
	"net/http"

	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/api/validation"
	"github.com/hugh/salespulse/internal/week"
)

func (h *PerformanceHandler) ListResults(w http.ResponseWriter, r *http.Request) {
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

	rows, err := h.perf.ResultHistory(r.Context(), middleware.GetActor(r.Context()), userID, limit)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// SaveResult records actuals for the previous week.
func (h *PerformanceHandler) SaveResult(w http.ResponseWriter, r *http.Request) {
	var req dto.ResultRequest
	if !decode(w, r, &req) {
		return
	}

	view, err := h.perf.SaveResult(r.Context(), middleware.GetUserID(r.Context()), req.Actuals())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PerformanceHandler) PreviousResult(w http.ResponseWriter, r *http.Request) {
	view, err := h.perf.PreviousResult(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PerformanceHandler) ResultHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := historyLimit(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	actor := middleware.GetActor(r.Context())
	rows, err := h.perf.ResultHistory(r.Context(), actor, actor.ID, limit)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *PerformanceHandler) UserResultForWeek(w http.ResponseWriter, r *http.Request) {
	userID, weekStart, err := userWeek(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	view, err := h.perf.ResultForWeek(r.Context(), middleware.GetActor(r.Context()), userID, weekStart)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PerformanceHandler) UserResultHistory(w http.ResponseWriter, r *http.Request) {
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

	rows, err := h.perf.ResultHistory(r.Context(), middleware.GetActor(r.Context()), userID, limit)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Reconcile compares a reported result with logged activity. The week
// defaults to the previous one and the user to the caller.
func (h *PerformanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	weekStart, err := h.weekOrDefault(r, h.cal.LastWeek())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	rec, err := h.perf.Reconcile(r.Context(), middleware.GetActor(r.Context()), userID, weekStart)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Attainment reports derived attainment for all AEs. Admin only.
func (h *PerformanceHandler) Attainment(w http.ResponseWriter, r *http.Request) {
	weekStart, err := h.weekOrDefault(r, h.cal.LastWeek())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	report, err := h.perf.Attainment(r.Context(), weekStart)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *PerformanceHandler) weekOrDefault(r *http.Request, def week.Date) (week.Date, error) {
	d, err := validation.QueryDate(r, "week_start", "weekStart")
	if err != nil {
		return week.Date{}, err
	}
	if d.IsZero() {
		return def, nil
	}
	return week.StartOf(d), nil
}
