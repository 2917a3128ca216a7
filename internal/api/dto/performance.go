package dto

import (
	"github.com/hugh/salespulse/internal/performance"
	"github.com/hugh/salespulse/internal/scoring"
	"github.com/hugh/salespulse/internal/week"
)

type CommitmentRequest struct {
	CallsTarget    int `json:"calls_target" validate:"gte=0"`
	EmailsTarget   int `json:"emails_target" validate:"gte=0"`
	MeetingsTarget int `json:"meetings_target" validate:"gte=0"`
}

func (r CommitmentRequest) Validate() map[string]string {
	return check(r)
}

func (r CommitmentRequest) Targets() scoring.Triple {
	return scoring.Triple{Calls: r.CallsTarget, Emails: r.EmailsTarget, Meetings: r.MeetingsTarget}
}

type ResultRequest struct {
	CallsActual    int `json:"calls_actual" validate:"gte=0"`
	EmailsActual   int `json:"emails_actual" validate:"gte=0"`
	MeetingsActual int `json:"meetings_actual" validate:"gte=0"`
}

func (r ResultRequest) Validate() map[string]string {
	return check(r)
}

func (r ResultRequest) Actuals() scoring.Triple {
	return scoring.Triple{Calls: r.CallsActual, Emails: r.EmailsActual, Meetings: r.MeetingsActual}
}

type GoalRequest struct {
	Date         week.Date `json:"date"`
	CallsGoal    int       `json:"calls_goal" validate:"gte=0"`
	EmailsGoal   int       `json:"emails_goal" validate:"gte=0"`
	MeetingsGoal int       `json:"meetings_goal" validate:"gte=0"`
}

func (r GoalRequest) Validate() map[string]string {
	errs := check(r)
	if r.Date.IsZero() {
		errs["date"] = "date is required"
	}
	return errs
}

func (r GoalRequest) Goals() scoring.Triple {
	return scoring.Triple{Calls: r.CallsGoal, Emails: r.EmailsGoal, Meetings: r.MeetingsGoal}
}

// AchievementRequest sets any subset of the flags for one date.
type AchievementRequest struct {
	Date             week.Date `json:"date"`
	CallsAchieved    *bool     `json:"calls_achieved"`
	EmailsAchieved   *bool     `json:"emails_achieved"`
	MeetingsAchieved *bool     `json:"meetings_achieved"`
}

func (r AchievementRequest) Validate() map[string]string {
	errs := check(r)
	if r.Date.IsZero() {
		errs["date"] = "date is required"
	}
	return errs
}

func (r AchievementRequest) Update() performance.AchievementUpdate {
	return performance.AchievementUpdate{
		CallsAchieved:    r.CallsAchieved,
		EmailsAchieved:   r.EmailsAchieved,
		MeetingsAchieved: r.MeetingsAchieved,
	}
}
