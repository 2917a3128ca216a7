package models

import (
	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/scoring"
	"github.com/hugh/salespulse/internal/week"
)

// WeeklyCommitment is an AE's target for a week. One row per user and
// week; saving again replaces the targets.
type WeeklyCommitment struct {
	Base
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_commitments_user_week" json:"user_id"`
	WeekStartDate  week.Date `gorm:"not null;uniqueIndex:idx_commitments_user_week;index" json:"week_start_date"`
	CallsTarget    int       `gorm:"not null" json:"calls_target"`
	EmailsTarget   int       `gorm:"not null" json:"emails_target"`
	MeetingsTarget int       `gorm:"not null" json:"meetings_target"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (WeeklyCommitment) TableName() string {
	return "weekly_commitments"
}

func (c *WeeklyCommitment) Targets() scoring.Triple {
	return scoring.Triple{Calls: c.CallsTarget, Emails: c.EmailsTarget, Meetings: c.MeetingsTarget}
}

// WeeklyResult holds hand-entered actuals for a week.
type WeeklyResult struct {
	Base
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_results_user_week" json:"user_id"`
	WeekStartDate  week.Date `gorm:"not null;uniqueIndex:idx_results_user_week;index" json:"week_start_date"`
	CallsActual    int       `gorm:"not null" json:"calls_actual"`
	EmailsActual   int       `gorm:"not null" json:"emails_actual"`
	MeetingsActual int       `gorm:"not null" json:"meetings_actual"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (WeeklyResult) TableName() string {
	return "weekly_results"
}

func (r *WeeklyResult) Actuals() scoring.Triple {
	return scoring.Triple{Calls: r.CallsActual, Emails: r.EmailsActual, Meetings: r.MeetingsActual}
}

// DailyGoal is a per-day target with three independent achievement flags.
type DailyGoal struct {
	Base
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_daily_goals_user_date" json:"user_id"`
	GoalDate         week.Date `gorm:"not null;uniqueIndex:idx_daily_goals_user_date" json:"date"`
	CallsGoal        int       `gorm:"not null" json:"calls_goal"`
	EmailsGoal       int       `gorm:"not null" json:"emails_goal"`
	MeetingsGoal     int       `gorm:"not null" json:"meetings_goal"`
	CallsAchieved    bool      `gorm:"not null" json:"calls_achieved"`
	EmailsAchieved   bool      `gorm:"not null" json:"emails_achieved"`
	MeetingsAchieved bool      `gorm:"not null" json:"meetings_achieved"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (DailyGoal) TableName() string {
	return "daily_goals"
}
