package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/week"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityCall    ActivityType = "call"
	ActivityEmail   ActivityType = "email"
	ActivityMeeting ActivityType = "meeting"
	ActivitySocial  ActivityType = "social"
	ActivityOther   ActivityType = "other"
)

var ActivityTypes = []ActivityType{ActivityCall, ActivityEmail, ActivityMeeting, ActivitySocial, ActivityOther}

func (t ActivityType) Valid() bool {
	for _, v := range ActivityTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ActivityEvent is an append-only fact. Corrections are new events with a
// negative quantity that point at the event they reverse.
type ActivityEvent struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID    `gorm:"type:uuid;not null;index:idx_activity_events_user_occurred,priority:1" json:"user_id"`
	ActivityType      ActivityType `gorm:"type:varchar(16);not null" json:"activity_type"`
	Quantity          int          `gorm:"not null" json:"quantity"`
	DurationSeconds   *int         `json:"duration_seconds,omitempty"`
	Source            *string      `gorm:"type:varchar(64)" json:"source,omitempty"`
	Metadata          *string      `gorm:"type:text" json:"-"`
	MetadataEncrypted bool         `gorm:"not null" json:"-"`
	OccurredAt        time.Time    `gorm:"not null;index:idx_activity_events_user_occurred,priority:2" json:"occurred_at"`
	ReversesEventID   *uuid.UUID   `gorm:"type:uuid;uniqueIndex" json:"reverses_event_id,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

func (ActivityEvent) TableName() string {
	return "activity_events"
}

func (e *ActivityEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *ActivityEvent) IsReversal() bool {
	return e.ReversesEventID != nil
}

// ActivityDaily is the per-day rollup. Rows are only changed by additive
// upserts and by rebuilds.
type ActivityDaily struct {
	UserID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"user_id"`
	ActivityDate         week.Date    `gorm:"primaryKey" json:"activity_date"`
	ActivityType         ActivityType `gorm:"type:varchar(16);primaryKey" json:"activity_type"`
	TotalQuantity        int64        `gorm:"not null" json:"total_quantity"`
	TotalDurationSeconds int64        `gorm:"not null" json:"total_duration_seconds"`
}

func (ActivityDaily) TableName() string {
	return "activity_daily"
}

// ActivityWeekly is the per-week rollup keyed by Monday.
type ActivityWeekly struct {
	UserID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"user_id"`
	WeekStart     week.Date    `gorm:"primaryKey" json:"week_start"`
	ActivityType  ActivityType `gorm:"type:varchar(16);primaryKey" json:"activity_type"`
	TotalQuantity int64        `gorm:"not null" json:"total_quantity"`
}

func (ActivityWeekly) TableName() string {
	return "activity_weekly"
}
