package handlers

import (
	"net/http"

	"github.com/hugh/salespulse/internal/api/validation"
	"github.com/hugh/salespulse/internal/leaderboard"
)

type LeaderboardHandler struct {
	board *leaderboard.Service
	rs    *Responder
}

func NewLeaderboardHandler(svc *leaderboard.Service, rs *Responder) *LeaderboardHandler {
	return &LeaderboardHandler{board: svc, rs: rs}
}

// Board ranks AEs for ?week_start=, defaulting to last week.
func (h *LeaderboardHandler) Board(w http.ResponseWriter, r *http.Request) {
	weekStart, err := validation.QueryDate(r, "week_start", "weekStart")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	board, err := h.board.Leaderboard(r.Context(), weekStart)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *LeaderboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	weekStart, err := validation.QueryDate(r, "week_start", "weekStart")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	summary, err := h.board.Summary(r.Context(), weekStart)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *LeaderboardHandler) History(w http.ResponseWriter, r *http.Request) {
	weeks, err := validation.QueryInt(r, "weeks", leaderboard.DefaultHistoryWeeks, 1, leaderboard.MaxHistoryWeeks)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	history, err := h.board.History(r.Context(), weeks)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *LeaderboardHandler) WeeksAvailable(w http.ResponseWriter, r *http.Request) {
	available, err := h.board.WeeksAvailable(r.Context())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, available)
}

// Top lists the best n AEs on one metric.
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	metric, err := leaderboard.ParseMetric(validation.Query(r, "metric"))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	n, err := validation.QueryInt(r, "n", leaderboard.DefaultTopN, 1, leaderboard.MaxTopN)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	weekStart, err := validation.QueryDate(r, "week_start", "weekStart")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	entries, err := h.board.Top(r.Context(), metric, weekStart, n)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
