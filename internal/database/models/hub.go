package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamUpdate is an AE Hub resource. Category holds a canonical key from
// the hub category registry.
type TeamUpdate struct {
	Base
	Title        string     `gorm:"not null" json:"title"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	Category     string     `gorm:"type:varchar(64);not null;index" json:"category"`
	Section      *string    `gorm:"type:varchar(128)" json:"section,omitempty"`
	FileURL      *string    `gorm:"type:text" json:"file_url,omitempty"`
	ExternalLink *string    `gorm:"type:text" json:"external_link,omitempty"`
	CreatedBy    *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`

	Author *User `gorm:"foreignKey:CreatedBy" json:"author,omitempty"`
}

func (TeamUpdate) TableName() string {
	return "team_updates"
}

type Favorite struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	UpdateID  uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"update_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string {
	return "team_update_favorites"
}

// RecentView keeps the latest view per user and update.
type RecentView struct {
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	UpdateID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"update_id"`
	ViewedAt time.Time `gorm:"not null;index" json:"viewed_at"`
}

func (RecentView) TableName() string {
	return "team_update_recent_views"
}

// All lists every model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&ActivityEvent{},
		&ActivityDaily{},
		&ActivityWeekly{},
		&WeeklyCommitment{},
		&WeeklyResult{},
		&DailyGoal{},
		&TeamUpdate{},
		&Favorite{},
		&RecentView{},
	}
}
