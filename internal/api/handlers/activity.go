package handlers

import (
	"net/http"

	"github.com/hugh/salespulse/internal/activity"
	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/api/validation"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/tasks"
	"github.com/hugh/salespulse/internal/week"
)

type ActivityHandler struct {
	activity *activity.Service
	cal      *week.Calendar
	queue    tasks.Enqueuer
	rs       *Responder
}

// NewActivityHandler builds the handler. queue may be nil, in which case
// rebuild requests are refused with 503.
func NewActivityHandler(svc *activity.Service, cal *week.Calendar, queue tasks.Enqueuer, rs *Responder) *ActivityHandler {
	return &ActivityHandler{activity: svc, cal: cal, queue: queue, rs: rs}
}

func (h *ActivityHandler) Log(w http.ResponseWriter, r *http.Request) {
	var req dto.LogActivityRequest
	if !decode(w, r, &req) {
		return
	}

	event, err := h.activity.Log(r.Context(), middleware.GetUserID(r.Context()), activity.LogInput{
		Type:            models.ActivityType(req.ActivityType),
		Quantity:        req.Quantity,
		DurationSeconds: req.DurationSeconds,
		Source:          validation.SanitizePtr(req.Source),
		Metadata:        req.Metadata,
		OccurredAt:      req.OccurredAt,
	})
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.CreatedResponse{ID: event.ID.String(), Success: true})
}

// Reverse records a compensating event for one of the caller's events.
// Admins may reverse anyone's.
func (h *ActivityHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UUIDParam(r, "id")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	reversal, err := h.activity.Reverse(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.CreatedResponse{ID: reversal.ID.String(), Success: true})
}

func (h *ActivityHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.activity.Summary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ActivityHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit, err := validation.QueryInt(r, "limit", 50, 1, 200)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	events, err := h.activity.ListEvents(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: events, Count: len(events)})
}

func (h *ActivityHandler) Overview(w http.ResponseWriter, r *http.Request) {
	rows, err := h.activity.AdminOverview(r.Context())
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Daily defaults to today.
func (h *ActivityHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date, err := validation.QueryDate(r, "date")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if date.IsZero() {
		date = h.cal.Today()
	}

	rows, err := h.activity.AdminDaily(r.Context(), date)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"date": date, "users": rows})
}

// Weekly defaults to the current week.
func (h *ActivityHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	weekStart, err := validation.QueryDate(r, "week_start", "weekStart")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if weekStart.IsZero() {
		weekStart = h.cal.ThisWeek()
	}
	weekStart = week.StartOf(weekStart)

	rows, err := h.activity.AdminWeekly(r.Context(), weekStart)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"week_start": weekStart, "users": rows})
}

// Rebuild queues a rollup rebuild for one user. The range defaults to the
// current week.
func (h *ActivityHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Job queue is not configured"})
		return
	}

	var req dto.RebuildRequest
	if !decode(w, r, &req) {
		return
	}
	from, to := req.From, req.To
	if from.IsZero() {
		from = h.cal.ThisWeek()
	}
	if to.IsZero() {
		to = week.StartOf(from).AddDays(6)
	}

	task, err := tasks.NewRollupRebuildTask(tasks.RollupRebuildPayload{UserID: req.UserID, From: from, To: to})
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	info, err := h.queue.EnqueueContext(r.Context(), task)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dto.JobAcceptedResponse{TaskID: info.ID, Queue: info.Queue})
}
