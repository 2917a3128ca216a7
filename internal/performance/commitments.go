package performance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/access"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/scoring"
	"github.com/hugh/salespulse/internal/week"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommitmentView is a commitment with the targets split across workdays.
type CommitmentView struct {
	models.WeeklyCommitment
	DailyAverages scoring.Triple `json:"daily_averages"`
}

func newCommitmentView(c *models.WeeklyCommitment) *CommitmentView {
	return &CommitmentView{WeeklyCommitment: *c, DailyAverages: scoring.DailyAverages(c.Targets())}
}

// SaveCommitment sets the user's targets for the current week, replacing
// any earlier targets for that week.
func (s *Service) SaveCommitment(ctx context.Context, userID uuid.UUID, targets scoring.Triple) (*CommitmentView, error) {
	if err := validateTriple(targets, "target"); err != nil {
		return nil, err
	}
	weekStart := s.cal.ThisWeek()

	var saved models.WeeklyCommitment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.WeeklyCommitment{
			UserID:         userID,
			WeekStartDate:  weekStart,
			CallsTarget:    targets.Calls,
			EmailsTarget:   targets.Emails,
			MeetingsTarget: targets.Meetings,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_start_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"calls_target", "emails_target", "meetings_target", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upserting commitment: %w", err)
		}
		return tx.Where("user_id = ? AND week_start_date = ?", userID, weekStart).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("commitment saved", "user_id", userID, "week_start", weekStart.String())
	return newCommitmentView(&saved), nil
}

// CurrentCommitment returns this week's commitment, or nil when none.
func (s *Service) CurrentCommitment(ctx context.Context, userID uuid.UUID) (*CommitmentView, error) {
	c, err := s.findCommitment(ctx, userID, s.cal.ThisWeek())
	if err != nil || c == nil {
		return nil, err
	}
	return newCommitmentView(c), nil
}

// CommitmentForWeek returns userID's commitment for the week containing
// weekStart, or nil when none.
func (s *Service) CommitmentForWeek(ctx context.Context, actor access.Actor, userID uuid.UUID, weekStart week.Date) (*CommitmentView, error) {
	if err := actor.Require(userID); err != nil {
		return nil, err
	}
	c, err := s.findCommitment(ctx, userID, week.StartOf(weekStart))
	if err != nil || c == nil {
		return nil, err
	}
	return newCommitmentView(c), nil
}

// CommitmentHistory returns userID's commitments, newest week first.
func (s *Service) CommitmentHistory(ctx context.Context, actor access.Actor, userID uuid.UUID, limit int) ([]models.WeeklyCommitment, error) {
	if err := actor.Require(userID); err != nil {
		return nil, err
	}
	var rows []models.WeeklyCommitment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("week_start_date DESC").
		Limit(historyLimit(limit)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing commitments: %w", err)
	}
	return rows, nil
}

func (s *Service) findCommitment(ctx context.Context, userID uuid.UUID, weekStart week.Date) (*models.WeeklyCommitment, error) {
	var c models.WeeklyCommitment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND week_start_date = ?", userID, weekStart).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading commitment: %w", err)
	}
	return &c, nil
}
