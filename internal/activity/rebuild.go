package activity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/observability"
	"github.com/hugh/salespulse/internal/week"
	"gorm.io/gorm"
)

type RebuildStats struct {
	From       week.Date `json:"from"`
	To         week.Date `json:"to"`
	Events     int       `json:"events"`
	DailyRows  int       `json:"daily_rows"`
	WeeklyRows int       `json:"weekly_rows"`
}

// Rebuild recomputes a user's rollups from their events over whole weeks
// covering [from, to]. Existing rollup rows in the range are replaced.
func (s *Service) Rebuild(ctx context.Context, userID uuid.UUID, from, to week.Date) (*RebuildStats, error) {
	if to.Before(from) {
		from, to = to, from
	}
	start := week.StartOf(from)
	end := week.StartOf(to).AddDays(7)
	stats := &RebuildStats{From: start, To: end.AddDays(-1)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		// Clear before reading so the events read are never older than
		// the rows being replaced.
		if err := tx.Where("user_id = ? AND activity_date >= ? AND activity_date < ?", userID, start, end).
			Delete(&models.ActivityDaily{}).Error; err != nil {
			return fmt.Errorf("clearing daily rollups: %w", err)
		}
		if err := tx.Where("user_id = ? AND week_start >= ? AND week_start < ?", userID, start, end).
			Delete(&models.ActivityWeekly{}).Error; err != nil {
			return fmt.Errorf("clearing weekly rollups: %w", err)
		}

		var events []models.ActivityEvent
		if err := tx.
			Where("user_id = ? AND occurred_at >= ? AND occurred_at < ?", userID, s.utcMidnight(start), s.utcMidnight(end)).
			Find(&events).Error; err != nil {
			return fmt.Errorf("loading events: %w", err)
		}
		stats.Events = len(events)

		daily, weekly := s.aggregate(events)
		stats.DailyRows = len(daily)
		stats.WeeklyRows = len(weekly)

		if len(daily) > 0 {
			if err := tx.CreateInBatches(daily, 500).Error; err != nil {
				return fmt.Errorf("writing daily rollups: %w", err)
			}
		}
		if len(weekly) > 0 {
			if err := tx.CreateInBatches(weekly, 500).Error; err != nil {
				return fmt.Errorf("writing weekly rollups: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("rollups rebuilt",
		"user_id", userID,
		"from", stats.From.String(),
		"to", stats.To.String(),
		"events", stats.Events,
	)
	return stats, nil
}

type dailyKey struct {
	userID       uuid.UUID
	date         week.Date
	activityType models.ActivityType
}

type userWeekKey struct {
	userID       uuid.UUID
	week         week.Date
	activityType models.ActivityType
}

// aggregate folds events into rollup rows in the calendar's time zone.
func (s *Service) aggregate(events []models.ActivityEvent) ([]models.ActivityDaily, []models.ActivityWeekly) {
	daily := make(map[dailyKey]*models.ActivityDaily)
	weekly := make(map[userWeekKey]*models.ActivityWeekly)
	var dailyOrder []dailyKey
	var weeklyOrder []userWeekKey

	for _, e := range events {
		date := s.cal.DateOf(e.OccurredAt)
		dk := dailyKey{e.UserID, date, e.ActivityType}
		d, ok := daily[dk]
		if !ok {
			d = &models.ActivityDaily{UserID: e.UserID, ActivityDate: date, ActivityType: e.ActivityType}
			daily[dk] = d
			dailyOrder = append(dailyOrder, dk)
		}
		d.TotalQuantity += int64(e.Quantity)
		if e.DurationSeconds != nil {
			d.TotalDurationSeconds += int64(*e.DurationSeconds)
		}

		wk := userWeekKey{e.UserID, week.StartOf(date), e.ActivityType}
		w, ok := weekly[wk]
		if !ok {
			w = &models.ActivityWeekly{UserID: e.UserID, WeekStart: wk.week, ActivityType: e.ActivityType}
			weekly[wk] = w
			weeklyOrder = append(weeklyOrder, wk)
		}
		w.TotalQuantity += int64(e.Quantity)
	}

	dailyRows := make([]models.ActivityDaily, 0, len(dailyOrder))
	for _, k := range dailyOrder {
		dailyRows = append(dailyRows, *daily[k])
	}
	weeklyRows := make([]models.ActivityWeekly, 0, len(weeklyOrder))
	for _, k := range weeklyOrder {
		weeklyRows = append(weeklyRows, *weekly[k])
	}
	return dailyRows, weeklyRows
}

// Mismatch is a weekly rollup key whose stored total differs from the sum
// of its events.
type Mismatch struct {
	UserID       uuid.UUID           `json:"user_id"`
	WeekStart    week.Date           `json:"week_start"`
	ActivityType models.ActivityType `json:"activity_type"`
	Expected     int64               `json:"expected"`
	Actual       int64               `json:"actual"`
}

// Audit compares the weekly rollups of the last n weeks, this week
// included, against their events. It reports every disagreeing key and
// publishes the count as a gauge.
func (s *Service) Audit(ctx context.Context, weeks int) ([]Mismatch, error) {
	if weeks <= 0 {
		weeks = 1
	}
	start := s.cal.ThisWeek().AddDays(-7 * (weeks - 1))
	end := s.cal.ThisWeek().AddDays(7)

	var events []models.ActivityEvent
	if err := s.db.WithContext(ctx).
		Where("occurred_at >= ? AND occurred_at < ?", s.utcMidnight(start), s.utcMidnight(end)).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	var stored []models.ActivityWeekly
	if err := s.db.WithContext(ctx).
		Where("week_start >= ? AND week_start < ?", start, end).
		Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("loading weekly rollups: %w", err)
	}

	_, computed := s.aggregate(events)
	expected := make(map[userWeekKey]int64, len(computed))
	for _, w := range computed {
		expected[userWeekKey{w.UserID, w.WeekStart, w.ActivityType}] = w.TotalQuantity
	}
	actual := make(map[userWeekKey]int64, len(stored))
	for _, w := range stored {
		actual[userWeekKey{w.UserID, w.WeekStart, w.ActivityType}] = w.TotalQuantity
	}

	var mismatches []Mismatch
	for k, want := range expected {
		if got := actual[k]; got != want {
			mismatches = append(mismatches, Mismatch{k.userID, k.week, k.activityType, want, got})
		}
	}
	for k, got := range actual {
		if _, ok := expected[k]; !ok && got != 0 {
			mismatches = append(mismatches, Mismatch{k.userID, k.week, k.activityType, 0, got})
		}
	}
	sort.Slice(mismatches, func(i, j int) bool {
		a, b := mismatches[i], mismatches[j]
		if a.UserID != b.UserID {
			return a.UserID.String() < b.UserID.String()
		}
		if !a.WeekStart.Equal(b.WeekStart) {
			return a.WeekStart.Before(b.WeekStart)
		}
		return a.ActivityType < b.ActivityType
	})

	observability.RecordRollupAudit(len(mismatches), s.cal.Now())
	if len(mismatches) > 0 {
		s.logger.Warn("rollup audit found mismatches", "count", len(mismatches), "weeks", weeks)
	}
	return mismatches, nil
}

func (s *Service) utcMidnight(d week.Date) time.Time {
	return d.In(s.cal.Location()).UTC()
}
