// Package activity records activity events and maintains the daily and
// weekly rollups derived from them.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/access"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/observability"
	"github.com/hugh/salespulse/internal/week"
	"github.com/hugh/salespulse/pkg/crypto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxQuantity        = 1000
	MaxDurationSeconds = 86400
	maxSourceLength    = 64
	reversalSource     = "reversal"
)

type Service struct {
	db        *gorm.DB
	cal       *week.Calendar
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

// NewService wires the engine. A nil encryptor stores metadata as plain
// JSON.
func NewService(db *gorm.DB, cal *week.Calendar, encryptor *crypto.Encryptor, logger *slog.Logger) *Service {
	return &Service{db: db, cal: cal, encryptor: encryptor, logger: logger}
}

type LogInput struct {
	Type            models.ActivityType
	Quantity        *int
	DurationSeconds *int
	Source          *string
	Metadata        json.RawMessage
	OccurredAt      *time.Time
}

func (in LogInput) validate() map[string]string {
	errs := make(map[string]string)
	if !in.Type.Valid() {
		errs["activity_type"] = "activity_type must be one of call, email, meeting, social, other"
	}
	if in.Quantity != nil && (*in.Quantity < 1 || *in.Quantity > MaxQuantity) {
		errs["quantity"] = fmt.Sprintf("quantity must be between 1 and %d", MaxQuantity)
	}
	if in.DurationSeconds != nil && (*in.DurationSeconds < 0 || *in.DurationSeconds > MaxDurationSeconds) {
		errs["duration_seconds"] = fmt.Sprintf("duration_seconds must be between 0 and %d", MaxDurationSeconds)
	}
	if in.Source != nil && len(*in.Source) > maxSourceLength {
		errs["source"] = fmt.Sprintf("source must be at most %d characters", maxSourceLength)
	}
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		trimmed := strings.TrimSpace(string(in.Metadata))
		if !json.Valid(in.Metadata) || !strings.HasPrefix(trimmed, "{") {
			errs["metadata"] = "metadata must be a JSON object"
		}
	}
	return errs
}

// Log records one event and adds it to the daily and weekly rollups in a
// single transaction.
func (s *Service) Log(ctx context.Context, userID uuid.UUID, in LogInput) (*models.ActivityEvent, error) {
	if errs := in.validate(); len(errs) > 0 {
		return nil, apperr.InvalidFields(errs)
	}

	quantity := 1
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	occurredAt := s.cal.Now()
	if in.OccurredAt != nil {
		occurredAt = *in.OccurredAt
	}

	event := &models.ActivityEvent{
		UserID:          userID,
		ActivityType:    in.Type,
		Quantity:        quantity,
		DurationSeconds: in.DurationSeconds,
		Source:          in.Source,
		OccurredAt:      occurredAt.UTC().Truncate(time.Microsecond),
	}
	if err := s.attachMetadata(event, in.Metadata); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
		return s.applyRollups(tx, event)
	})
	if err != nil {
		return nil, err
	}

	observability.RecordActivityLogged(string(event.ActivityType), event.Quantity)
	return event, nil
}

// Reverse records a compensating entry for eventID. The original stays
// untouched; the reversal carries the negated quantity and duration so
// the rollups return to their prior totals.
func (s *Service) Reverse(ctx context.Context, actor access.Actor, eventID uuid.UUID) (*models.ActivityEvent, error) {
	var reversal *models.ActivityEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var original models.ActivityEvent
		if err := tx.First(&original, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("activity event")
			}
			return err
		}
		if err := actor.Require(original.UserID); err != nil {
			return err
		}
		if err := lockUser(tx, original.UserID); err != nil {
			return err
		}
		if original.IsReversal() {
			return apperr.Conflict("a reversal cannot be reversed")
		}

		var existing int64
		if err := tx.Model(&models.ActivityEvent{}).Where("reverses_event_id = ?", original.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("event already reversed")
		}

		source := reversalSource
		reversal = &models.ActivityEvent{
			UserID:          original.UserID,
			ActivityType:    original.ActivityType,
			Quantity:        -original.Quantity,
			Source:          &source,
			OccurredAt:      original.OccurredAt,
			ReversesEventID: &original.ID,
		}
		if original.DurationSeconds != nil {
			d := -*original.DurationSeconds
			reversal.DurationSeconds = &d
		}

		if err := tx.Create(reversal).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("event already reversed")
			}
			return fmt.Errorf("inserting reversal: %w", err)
		}
		return s.applyRollups(tx, reversal)
	})
	if err != nil {
		return nil, err
	}

	observability.RecordActivityReversed()
	s.logger.Info("activity event reversed",
		"event_id", eventID,
		"reversal_id", reversal.ID,
		"actor", actor.ID,
	)
	return reversal, nil
}

// lockUser serializes rollup writers for one user until tx ends, so a
// rebuild never interleaves with a log or reversal for the same user.
// SQLite already serializes writers and has no advisory locks.
func lockUser(tx *gorm.DB, userID uuid.UUID) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID.String()).Error; err != nil {
		return fmt.Errorf("locking user rollups: %w", err)
	}
	return nil
}

// applyRollups adds the event to its day and week. The upsert is additive
// and atomic in the database, so concurrent logs for the same key are safe.
func (s *Service) applyRollups(tx *gorm.DB, event *models.ActivityEvent) error {
	var duration int64
	if event.DurationSeconds != nil {
		duration = int64(*event.DurationSeconds)
	}

	daily := models.ActivityDaily{
		UserID:               event.UserID,
		ActivityDate:         s.cal.DateOf(event.OccurredAt),
		ActivityType:         event.ActivityType,
		TotalQuantity:        int64(event.Quantity),
		TotalDurationSeconds: duration,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "activity_date"}, {Name: "activity_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_quantity":         gorm.Expr("activity_daily.total_quantity + excluded.total_quantity"),
			"total_duration_seconds": gorm.Expr("activity_daily.total_duration_seconds + excluded.total_duration_seconds"),
		}),
	}).Create(&daily).Error; err != nil {
		return fmt.Errorf("upserting daily rollup: %w", err)
	}

	weekly := models.ActivityWeekly{
		UserID:        event.UserID,
		WeekStart:     s.cal.WeekOf(event.OccurredAt),
		ActivityType:  event.ActivityType,
		TotalQuantity: int64(event.Quantity),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "week_start"}, {Name: "activity_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_quantity": gorm.Expr("activity_weekly.total_quantity + excluded.total_quantity"),
		}),
	}).Create(&weekly).Error; err != nil {
		return fmt.Errorf("upserting weekly rollup: %w", err)
	}

	return nil
}

func (s *Service) attachMetadata(event *models.ActivityEvent, raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	value := string(raw)
	if s.encryptor != nil {
		sealed, err := s.encryptor.Seal(raw)
		if err != nil {
			return fmt.Errorf("encrypting metadata: %w", err)
		}
		value = sealed
		event.MetadataEncrypted = true
	}
	event.Metadata = &value
	return nil
}

// EventView is an event as returned to its owner, metadata decoded.
type EventView struct {
	ID              uuid.UUID           `json:"id"`
	ActivityType    models.ActivityType `json:"activity_type"`
	Quantity        int                 `json:"quantity"`
	DurationSeconds *int                `json:"duration_seconds,omitempty"`
	Source          *string             `json:"source,omitempty"`
	Metadata        json.RawMessage     `json:"metadata,omitempty"`
	OccurredAt      time.Time           `json:"occurred_at"`
	ReversesEventID *uuid.UUID          `json:"reverses_event_id,omitempty"`
	Reversed        bool                `json:"reversed"`
	CreatedAt       time.Time           `json:"created_at"`
}

// ListEvents returns the user's most recent events, newest first.
func (s *Service) ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]EventView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var events []models.ActivityEvent
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC, created_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	reversed := make(map[uuid.UUID]bool)
	if len(ids) > 0 {
		var targets []uuid.UUID
		if err := s.db.WithContext(ctx).Model(&models.ActivityEvent{}).
			Where("reverses_event_id IN ?", ids).
			Pluck("reverses_event_id", &targets).Error; err != nil {
			return nil, fmt.Errorf("loading reversals: %w", err)
		}
		for _, id := range targets {
			reversed[id] = true
		}
	}

	views := make([]EventView, len(events))
	for i, e := range events {
		views[i] = EventView{
			ID:              e.ID,
			ActivityType:    e.ActivityType,
			Quantity:        e.Quantity,
			DurationSeconds: e.DurationSeconds,
			Source:          e.Source,
			OccurredAt:      e.OccurredAt,
			ReversesEventID: e.ReversesEventID,
			Reversed:        reversed[e.ID],
			CreatedAt:       e.CreatedAt,
		}
		if meta, err := s.readMetadata(&e); err != nil {
			s.logger.Warn("unreadable event metadata", "event_id", e.ID, "error", err)
		} else {
			views[i].Metadata = meta
		}
	}
	return views, nil
}

func (s *Service) readMetadata(e *models.ActivityEvent) (json.RawMessage, error) {
	if e.Metadata == nil {
		return nil, nil
	}
	if !e.MetadataEncrypted {
		return json.RawMessage(*e.Metadata), nil
	}
	plain, err := s.encryptor.Open(*e.Metadata)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(plain), nil
}
