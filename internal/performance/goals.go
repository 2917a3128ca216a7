package performance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/access"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/patch"
	"github.com/hugh/salespulse/internal/scoring"
	"github.com/hugh/salespulse/internal/week"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var achievementColumns = []string{"calls_achieved", "emails_achieved", "meetings_achieved"}

// AchievementUpdate sets any subset of a goal's achievement flags.
type AchievementUpdate struct {
	CallsAchieved    *bool `patch:"calls_achieved"`
	EmailsAchieved   *bool `patch:"emails_achieved"`
	MeetingsAchieved *bool `patch:"meetings_achieved"`
}

// SaveGoal sets the goal counts for a date. Achievement flags of an
// existing goal are left as they were.
func (s *Service) SaveGoal(ctx context.Context, userID uuid.UUID, date week.Date, goals scoring.Triple) (*models.DailyGoal, error) {
	if date.IsZero() {
		return nil, apperr.Invalid("date", "date is required")
	}
	if err := validateTriple(goals, "goal"); err != nil {
		return nil, err
	}

	var saved models.DailyGoal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.DailyGoal{
			UserID:       userID,
			GoalDate:     date,
			CallsGoal:    goals.Calls,
			EmailsGoal:   goals.Emails,
			MeetingsGoal: goals.Meetings,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "goal_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"calls_goal", "emails_goal", "meetings_goal", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upserting goal: %w", err)
		}
		return tx.Where("user_id = ? AND goal_date = ?", userID, date).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateAchievement writes only the flags present in update. The goal for
// date must already exist.
func (s *Service) UpdateAchievement(ctx context.Context, userID uuid.UUID, date week.Date, update AchievementUpdate) (*models.DailyGoal, error) {
	if date.IsZero() {
		return nil, apperr.Invalid("date", "date is required")
	}
	set, err := patch.Build(update, achievementColumns...)
	if err != nil {
		if errors.Is(err, patch.ErrEmpty) {
			return nil, apperr.BadRequest("no achievement updates provided")
		}
		return nil, err
	}

	var goal models.DailyGoal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND goal_date = ?", userID, date).First(&goal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("goal for this date")
			}
			return err
		}
		if err := tx.Model(&goal).Updates(map[string]interface{}(set)).Error; err != nil {
			return fmt.Errorf("updating achievement: %w", err)
		}
		return tx.First(&goal, "id = ?", goal.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// GoalForDate returns userID's goal for date, or nil when none.
func (s *Service) GoalForDate(ctx context.Context, actor access.Actor, userID uuid.UUID, date week.Date) (*models.DailyGoal, error) {
	if err := actor.Require(userID); err != nil {
		return nil, err
	}
	var goal models.DailyGoal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND goal_date = ?", userID, date).
		First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading goal: %w", err)
	}
	return &goal, nil
}

// GoalsForWeek returns userID's goals Monday through Friday of the week
// containing weekStart, ordered by date.
func (s *Service) GoalsForWeek(ctx context.Context, actor access.Actor, userID uuid.UUID, weekStart week.Date) ([]models.DailyGoal, error) {
	if err := actor.Require(userID); err != nil {
		return nil, err
	}
	days := week.Workdays(weekStart)

	var goals []models.DailyGoal
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND goal_date >= ? AND goal_date <= ?", userID, days[0], days[len(days)-1]).
		Order("goal_date ASC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	return goals, nil
}

// CurrentWeekGoals is GoalsForWeek for the calendar's current week.
func (s *Service) CurrentWeekGoals(ctx context.Context, userID uuid.UUID) ([]models.DailyGoal, error) {
	return s.GoalsForWeek(ctx, access.Actor{ID: userID}, userID, s.cal.ThisWeek())
}
