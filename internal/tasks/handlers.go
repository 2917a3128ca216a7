package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/salespulse/internal/activity"
	"github.com/hugh/salespulse/internal/week"
	"github.com/hugh/salespulse/pkg/crypto"
)

// Rollups is the part of the activity engine the worker drives.
type Rollups interface {
	Rebuild(ctx context.Context, userID uuid.UUID, from, to week.Date) (*activity.RebuildStats, error)
	Audit(ctx context.Context, weeks int) ([]activity.Mismatch, error)
	ResealMetadata(ctx context.Context, batch int) (*activity.ResealStats, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Handler struct {
	rollups Rollups
	queue   Enqueuer
	logger  *slog.Logger
}

func NewHandler(rollups Rollups, queue Enqueuer, logger *slog.Logger) *Handler {
	return &Handler{
		rollups: rollups,
		queue:   queue,
		logger:  logger,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRollupRebuild, h.HandleRollupRebuild)
	mux.HandleFunc(TypeRollupAudit, h.HandleRollupAudit)
	mux.HandleFunc(TypeMetadataReseal, h.HandleMetadataReseal)
}

func (h *Handler) HandleRollupRebuild(ctx context.Context, t *asynq.Task) error {
	var payload RollupRebuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.UserID == uuid.Nil || payload.From.IsZero() || payload.To.IsZero() {
		return fmt.Errorf("invalid rebuild payload: %w", asynq.SkipRetry)
	}

	h.logger.Info("starting rollup rebuild",
		"user_id", payload.UserID,
		"from", payload.From.String(),
		"to", payload.To.String(),
	)

	stats, err := h.rollups.Rebuild(ctx, payload.UserID, payload.From, payload.To)
	if err != nil {
		h.logger.Error("rollup rebuild failed", "user_id", payload.UserID, "error", err)
		return err
	}

	h.logger.Info("completed rollup rebuild",
		"user_id", payload.UserID,
		"events", stats.Events,
		"daily_rows", stats.DailyRows,
		"weekly_rows", stats.WeeklyRows,
	)
	return nil
}

// HandleRollupAudit enqueues one rebuild per mismatched user and week.
func (h *Handler) HandleRollupAudit(ctx context.Context, t *asynq.Task) error {
	var payload RollupAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	mismatches, err := h.rollups.Audit(ctx, payload.Weeks)
	if err != nil {
		return fmt.Errorf("auditing rollups: %w", err)
	}

	type userWeek struct {
		userID uuid.UUID
		week   week.Date
	}
	seen := make(map[userWeek]bool)
	var errs []error
	for _, m := range mismatches {
		key := userWeek{m.UserID, m.WeekStart}
		if seen[key] {
			continue
		}
		seen[key] = true

		task, err := NewRollupRebuildTask(RollupRebuildPayload{
			UserID: m.UserID,
			From:   m.WeekStart,
			To:     m.WeekStart.AddDays(6),
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := h.queue.EnqueueContext(ctx, task); err != nil {
			h.logger.Error("failed to enqueue rebuild", "user_id", m.UserID, "week_start", m.WeekStart.String(), "error", err)
			errs = append(errs, err)
		}
	}

	h.logger.Info("completed rollup audit",
		"weeks", payload.Weeks,
		"mismatches", len(mismatches),
		"rebuilds", len(seen),
	)
	return errors.Join(errs...)
}

func (h *Handler) HandleMetadataReseal(ctx context.Context, t *asynq.Task) error {
	var payload MetadataResealPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	stats, err := h.rollups.ResealMetadata(ctx, payload.BatchSize)
	if err != nil {
		if errors.Is(err, crypto.ErrNoKey) {
			return fmt.Errorf("reseal without encryptor: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("resealing metadata: %w", err)
	}

	h.logger.Info("completed metadata reseal", "resealed", stats.Resealed, "failed", stats.Failed)
	return nil
}
