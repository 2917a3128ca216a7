package handlers

import (
	"net/http"

	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/api/validation"
)

func (h *PerformanceHandler) SaveGoal(w http.ResponseWriter, r *http.Request) {
	var req dto.GoalRequest
	if !decode(w, r, &req) {
		return
	}

	goal, err := h.perf.SaveGoal(r.Context(), middleware.GetUserID(r.Context()), req.Date, req.Goals())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// UpdateAchievement changes only the flags present in the body.
func (h *PerformanceHandler) UpdateAchievement(w http.ResponseWriter, r *http.Request) {
	var req dto.AchievementRequest
	if !decode(w, r, &req) {
		return
	}

	goal, err := h.perf.UpdateAchievement(r.Context(), middleware.GetUserID(r.Context()), req.Date, req.Update())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (h *PerformanceHandler) GoalForDate(w http.ResponseWriter, r *http.Request) {
	date, err := validation.DateParam(r, "date")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	actor := middleware.GetActor(r.Context())
	goal, err := h.perf.GoalForDate(r.Context(), actor, actor.ID, date)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (h *PerformanceHandler) CurrentWeekGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.perf.CurrentWeekGoals(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *PerformanceHandler) UserGoalForDate(w http.ResponseWriter, r *http.Request) {
	userID, err := validation.UUIDParam(r, "userId")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	date, err := validation.DateParam(r, "date")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	goal, err := h.perf.GoalForDate(r.Context(), middleware.GetActor(r.Context()), userID, date)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (h *PerformanceHandler) UserGoalsForWeek(w http.ResponseWriter, r *http.Request) {
	userID, weekStart, err := userWeek(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	goals, err := h.perf.GoalsForWeek(r.Context(), middleware.GetActor(r.Context()), userID, weekStart)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}
