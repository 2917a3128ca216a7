package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/week"
)

type LogActivityRequest struct {
	ActivityType    string          `json:"activity_type" validate:"required,oneof=call email meeting social other"`
	Quantity        *int            `json:"quantity" validate:"omitempty,gte=1"`
	DurationSeconds *int            `json:"duration_seconds" validate:"omitempty,gte=0"`
	Source          *string         `json:"source" validate:"omitempty,max=64"`
	Metadata        json.RawMessage `json:"metadata"`
	OccurredAt      *time.Time      `json:"occurred_at"`
}

func (r LogActivityRequest) Validate() map[string]string {
	return check(r)
}

// RebuildRequest asks for one user's rollups to be recomputed over
// [from, to]. Both default to the current week.
type RebuildRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	From   week.Date `json:"from"`
	To     week.Date `json:"to"`
}

func (r RebuildRequest) Validate() map[string]string {
	errs := check(r)
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		errs["to"] = "to must not be before from"
	}
	return errs
}

type JobAcceptedResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}
