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

type Percentages struct {
	Calls    int `json:"calls"`
	Emails   int `json:"emails"`
	Meetings int `json:"meetings"`
	Overall  int `json:"overall"`
}

func percentagesOf(actuals, targets scoring.Triple) Percentages {
	p := scoring.Percentages(actuals, targets)
	return Percentages{
		Calls:    p.Calls,
		Emails:   p.Emails,
		Meetings: p.Meetings,
		Overall:  scoring.OverallPercentage(actuals, targets),
	}
}

// ResultView is a weekly result joined with that week's targets. Missing
// targets read as zero.
type ResultView struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	WeekStartDate  week.Date   `json:"week_start_date"`
	CallsActual    int         `json:"calls_actual"`
	EmailsActual   int         `json:"emails_actual"`
	MeetingsActual int         `json:"meetings_actual"`
	CallsTarget    int         `json:"calls_target"`
	EmailsTarget   int         `json:"emails_target"`
	MeetingsTarget int         `json:"meetings_target"`
	Percentages    Percentages `json:"percentages"`
}

func newResultView(r *models.WeeklyResult, targets scoring.Triple) ResultView {
	return ResultView{
		ID:             r.ID,
		UserID:         r.UserID,
		WeekStartDate:  r.WeekStartDate,
		CallsActual:    r.CallsActual,
		EmailsActual:   r.EmailsActual,
		MeetingsActual: r.MeetingsActual,
		CallsTarget:    targets.Calls,
		EmailsTarget:   targets.Emails,
		MeetingsTarget: targets.Meetings,
		Percentages:    percentagesOf(r.Actuals(), targets),
	}
}

// SaveResult records the user's actuals for the previous week, replacing
// any earlier entry for that week.
func (s *Service) SaveResult(ctx context.Context, userID uuid.UUID, actuals scoring.Triple) (*ResultView, error) {
	if err := validateTriple(actuals, "actual"); err != nil {
		return nil, err
	}
	weekStart := s.cal.LastWeek()

	var saved models.WeeklyResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.WeeklyResult{
			UserID:         userID,
			WeekStartDate:  weekStart,
			CallsActual:    actuals.Calls,
			EmailsActual:   actuals.Emails,
			MeetingsActual: actuals.Meetings,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_start_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"calls_actual", "emails_actual", "meetings_actual", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upserting result: %w", err)
		}
		return tx.Where("user_id = ? AND week_start_date = ?", userID, weekStart).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("result saved", "user_id", userID, "week_start", weekStart.String())
	return s.viewWithTargets(ctx, &saved)
}

// PreviousResult returns last week's result, or nil when none.
func (s *Service) PreviousResult(ctx context.Context, userID uuid.UUID) (*ResultView, error) {
	r, err := s.findResult(ctx, userID, s.cal.LastWeek())
	if err != nil || r == nil {
		return nil, err
	}
	return s.viewWithTargets(ctx, r)
}

// ResultForWeek returns userID's result for the week containing weekStart,
// or nil when none.
func (s *Service) ResultForWeek(ctx context.Context, actor access.Actor, userID uuid.UUID, weekStart week.Date) (*ResultView, error) {
	if err := actor.Require(userID); err != nil {
		return nil, err
	}
	r, err := s.findResult(ctx, userID, week.StartOf(weekStart))
	if err != nil || r == nil {
		return nil, err
	}
	return s.viewWithTargets(ctx, r)
}

// ResultHistory returns userID's results with targets, newest week first.
func (s *Service) ResultHistory(ctx context.Context, actor access.Actor, userID uuid.UUID, limit int) ([]ResultView, error) {
	if err := actor.Require(userID); err != nil {
		return nil, err
	}

	var rows []models.WeeklyResult
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("week_start_date DESC").
		Limit(historyLimit(limit)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	weeks := make([]week.Date, len(rows))
	for i := range rows {
		weeks[i] = rows[i].WeekStartDate
	}
	targets, err := s.commitmentsFor(ctx, []uuid.UUID{userID}, weeks)
	if err != nil {
		return nil, err
	}

	views := make([]ResultView, len(rows))
	for i := range rows {
		views[i] = newResultView(&rows[i], targets[userID][rows[i].WeekStartDate])
	}
	return views, nil
}

func (s *Service) viewWithTargets(ctx context.Context, r *models.WeeklyResult) (*ResultView, error) {
	c, err := s.findCommitment(ctx, r.UserID, r.WeekStartDate)
	if err != nil {
		return nil, err
	}
	var targets scoring.Triple
	if c != nil {
		targets = c.Targets()
	}
	view := newResultView(r, targets)
	return &view, nil
}

func (s *Service) findResult(ctx context.Context, userID uuid.UUID, weekStart week.Date) (*models.WeeklyResult, error) {
	var r models.WeeklyResult
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND week_start_date = ?", userID, weekStart).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading result: %w", err)
	}
	return &r, nil
}

// Reconciliation compares a hand-entered result with the activity rollups
// for the same week.
type Reconciliation struct {
	UserID     uuid.UUID       `json:"user_id"`
	WeekStart  week.Date       `json:"week_start"`
	Reported   *scoring.Triple `json:"reported"`
	Logged     scoring.Triple  `json:"logged"`
	Difference scoring.Triple  `json:"difference"`
	Matches    bool            `json:"matches"`
}

// Reconcile reports reported minus logged per metric. A week with no
// result compares against zero and Reported is nil.
func (s *Service) Reconcile(ctx context.Context, actor access.Actor, userID uuid.UUID, weekStart week.Date) (*Reconciliation, error) {
	if err := actor.Require(userID); err != nil {
		return nil, err
	}
	weekStart = week.StartOf(weekStart)

	r, err := s.findResult(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}

	var rollups []models.ActivityWeekly
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND week_start = ?", userID, weekStart).
		Find(&rollups).Error; err != nil {
		return nil, fmt.Errorf("loading weekly rollups: %w", err)
	}

	var logged scoring.Triple
	for _, row := range rollups {
		switch row.ActivityType {
		case models.ActivityCall:
			logged.Calls = int(row.TotalQuantity)
		case models.ActivityEmail:
			logged.Emails = int(row.TotalQuantity)
		case models.ActivityMeeting:
			logged.Meetings = int(row.TotalQuantity)
		}
	}

	rec := &Reconciliation{UserID: userID, WeekStart: weekStart, Logged: logged}
	var reported scoring.Triple
	if r != nil {
		reported = r.Actuals()
		rec.Reported = &reported
	}
	rec.Difference = scoring.Triple{
		Calls:    reported.Calls - logged.Calls,
		Emails:   reported.Emails - logged.Emails,
		Meetings: reported.Meetings - logged.Meetings,
	}
	rec.Matches = rec.Difference.IsZero()
	return rec, nil
}
