package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/scoring"
	"github.com/hugh/salespulse/internal/week"
)

// DayTotal is one type's totals for a date in the admin daily report.
type DayTotal struct {
	Quantity        int64 `json:"quantity"`
	DurationSeconds int64 `json:"duration_seconds"`
}

// Summary is an AE's view of today, this week and last week against the
// week before. Today maps each type to its quantity; logged call and
// meeting time is reported apart in TodayDuration.
type Summary struct {
	Date          week.Date                             `json:"date"`
	WeekStart     week.Date                             `json:"week_start"`
	Today         map[models.ActivityType]int64         `json:"today"`
	TodayDuration map[models.ActivityType]int64         `json:"today_duration"`
	Week          map[models.ActivityType]int64         `json:"week"`
	WoW           map[models.ActivityType]scoring.Delta `json:"wow"`
}

func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	today := s.cal.Today()
	thisWeek := s.cal.ThisWeek()
	lastWeek := s.cal.LastWeek()
	priorWeek := s.cal.PriorWeek()

	var daily []models.ActivityDaily
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND activity_date = ?", userID, today).
		Find(&daily).Error; err != nil {
		return nil, fmt.Errorf("loading daily rollup: %w", err)
	}

	weekly, err := s.weeklyTotals(ctx, []uuid.UUID{userID}, thisWeek, lastWeek, priorWeek)
	if err != nil {
		return nil, err
	}
	totals := weekly[userID]

	sum := &Summary{
		Date:      today,
		WeekStart: thisWeek,
		Today:         make(map[models.ActivityType]int64),
		TodayDuration: make(map[models.ActivityType]int64),
		Week:          make(map[models.ActivityType]int64),
		WoW:           make(map[models.ActivityType]scoring.Delta),
	}
	for _, row := range daily {
		sum.Today[row.ActivityType] = row.TotalQuantity
		if row.TotalDurationSeconds != 0 {
			sum.TodayDuration[row.ActivityType] = row.TotalDurationSeconds
		}
	}
	for key, qty := range totals {
		if key.week.Equal(thisWeek) {
			sum.Week[key.activityType] = qty
		}
	}
	for _, t := range models.ActivityTypes {
		last := totals[weekKey{lastWeek, t}]
		prior := totals[weekKey{priorWeek, t}]
		if last == 0 && prior == 0 {
			continue
		}
		sum.WoW[t] = scoring.WeekOverWeek(last, prior)
	}
	return sum, nil
}

type OverviewMetric struct {
	ThisWeek int64    `json:"this_week"`
	LastWeek int64    `json:"last_week"`
	WowPct   *float64 `json:"wow_pct"`
}

type OverviewRow struct {
	UserID     uuid.UUID                              `json:"user_id"`
	FirstName  string                                 `json:"first_name"`
	LastName   string                                 `json:"last_name"`
	FullName   string                                 `json:"full_name"`
	Activities map[models.ActivityType]OverviewMetric `json:"activities"`
	WowAvg     *float64                               `json:"wow_avg"`
}

// AdminOverview lists every active AE with this week's and last week's
// totals per type. wow_pct compares last week with the week before it, and
// wow_avg averages the percentages that exist.
func (s *Service) AdminOverview(ctx context.Context) ([]OverviewRow, error) {
	users, err := s.activeAEs(ctx)
	if err != nil {
		return nil, err
	}

	thisWeek := s.cal.ThisWeek()
	lastWeek := s.cal.LastWeek()
	priorWeek := s.cal.PriorWeek()

	totals, err := s.weeklyTotals(ctx, userIDs(users), thisWeek, lastWeek, priorWeek)
	if err != nil {
		return nil, err
	}

	rows := make([]OverviewRow, 0, len(users))
	for _, u := range users {
		byKey := totals[u.ID]
		row := OverviewRow{
			UserID:     u.ID,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			FullName:   u.FullName(),
			Activities: make(map[models.ActivityType]OverviewMetric),
		}
		var pcts []*float64
		for _, t := range models.ActivityTypes {
			this := byKey[weekKey{thisWeek, t}]
			last := byKey[weekKey{lastWeek, t}]
			prior := byKey[weekKey{priorWeek, t}]
			if this == 0 && last == 0 && prior == 0 {
				continue
			}
			pct := scoring.ChangePct(last, prior)
			row.Activities[t] = OverviewMetric{ThisWeek: this, LastWeek: last, WowPct: pct}
			pcts = append(pcts, pct)
		}
		row.WowAvg = scoring.MeanOfPresent(pcts)
		rows = append(rows, row)
	}
	return rows, nil
}

type DailyRow struct {
	UserID     uuid.UUID                        `json:"user_id"`
	FullName   string                           `json:"full_name"`
	Activities map[models.ActivityType]DayTotal `json:"activities"`
}

// AdminDaily returns each active AE's totals for one date.
func (s *Service) AdminDaily(ctx context.Context, date week.Date) ([]DailyRow, error) {
	users, err := s.activeAEs(ctx)
	if err != nil {
		return nil, err
	}

	var daily []models.ActivityDaily
	if len(users) > 0 {
		if err := s.db.WithContext(ctx).
			Where("activity_date = ? AND user_id IN ?", date, userIDs(users)).
			Find(&daily).Error; err != nil {
			return nil, fmt.Errorf("loading daily rollups: %w", err)
		}
	}

	byUser := make(map[uuid.UUID]map[models.ActivityType]DayTotal)
	for _, row := range daily {
		if byUser[row.UserID] == nil {
			byUser[row.UserID] = make(map[models.ActivityType]DayTotal)
		}
		byUser[row.UserID][row.ActivityType] = DayTotal{Quantity: row.TotalQuantity, DurationSeconds: row.TotalDurationSeconds}
	}

	rows := make([]DailyRow, 0, len(users))
	for _, u := range users {
		acts := byUser[u.ID]
		if acts == nil {
			acts = make(map[models.ActivityType]DayTotal)
		}
		rows = append(rows, DailyRow{UserID: u.ID, FullName: u.FullName(), Activities: acts})
	}
	return rows, nil
}

type WeeklyRow struct {
	UserID     uuid.UUID                     `json:"user_id"`
	FullName   string                        `json:"full_name"`
	Activities map[models.ActivityType]int64 `json:"activities"`
}

// AdminWeekly returns each active AE's totals for the week containing
// weekStart.
func (s *Service) AdminWeekly(ctx context.Context, weekStart week.Date) ([]WeeklyRow, error) {
	weekStart = week.StartOf(weekStart)

	users, err := s.activeAEs(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.weeklyTotals(ctx, userIDs(users), weekStart)
	if err != nil {
		return nil, err
	}

	rows := make([]WeeklyRow, 0, len(users))
	for _, u := range users {
		acts := make(map[models.ActivityType]int64)
		for key, qty := range totals[u.ID] {
			acts[key.activityType] = qty
		}
		rows = append(rows, WeeklyRow{UserID: u.ID, FullName: u.FullName(), Activities: acts})
	}
	return rows, nil
}

type weekKey struct {
	week         week.Date
	activityType models.ActivityType
}

func (s *Service) weeklyTotals(ctx context.Context, users []uuid.UUID, weeks ...week.Date) (map[uuid.UUID]map[weekKey]int64, error) {
	out := make(map[uuid.UUID]map[weekKey]int64)
	if len(users) == 0 || len(weeks) == 0 {
		return out, nil
	}

	var rows []models.ActivityWeekly
	if err := s.db.WithContext(ctx).
		Where("user_id IN ? AND week_start IN ?", users, weeks).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading weekly rollups: %w", err)
	}
	for _, row := range rows {
		if out[row.UserID] == nil {
			out[row.UserID] = make(map[weekKey]int64)
		}
		out[row.UserID][weekKey{row.WeekStart, row.ActivityType}] = row.TotalQuantity
	}
	return out, nil
}

func (s *Service) activeAEs(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleAE, true).
		Order("last_name ASC, first_name ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing active AEs: %w", err)
	}
	return users, nil
}

func userIDs(users []models.User) []uuid.UUID {
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
