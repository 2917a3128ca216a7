package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/salespulse/internal/week"
)

// Task type names
const (
	TypeRollupRebuild  = "rollup:rebuild"
	TypeRollupAudit    = "rollup:audit"
	TypeMetadataReseal = "metadata:reseal"
)

// RollupRebuildPayload asks for one user's rollups over [From, To] to be
// recomputed from their events.
type RollupRebuildPayload struct {
	UserID uuid.UUID `json:"user_id"`
	From   week.Date `json:"from"`
	To     week.Date `json:"to"`
}

func NewRollupRebuildTask(payload RollupRebuildPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRollupRebuild, data,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	), nil
}

// RollupAuditPayload covers the last Weeks weeks, the current one included.
type RollupAuditPayload struct {
	Weeks int `json:"weeks"`
}

func NewRollupAuditTask(payload RollupAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRollupAudit, data,
		asynq.Queue("low"),
		asynq.MaxRetry(1),
	), nil
}

type MetadataResealPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewMetadataResealTask is unique for an hour so restarting several
// workers after a key rotation queues a single pass.
func NewMetadataResealTask(payload MetadataResealPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMetadataReseal, data,
		asynq.Queue("low"),
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(time.Hour),
	), nil
}
