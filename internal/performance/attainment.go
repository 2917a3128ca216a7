package performance

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/scoring"
	"github.com/hugh/salespulse/internal/week"
)

// AttainmentWindow is how many weeks, the scored week included, are
// searched for a non-zero target.
const AttainmentWindow = 8

type AttainmentRow struct {
	UserID                uuid.UUID      `json:"user_id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	FullName              string         `json:"full_name"`
	Actuals               scoring.Triple `json:"actuals"`
	Targets               scoring.Triple `json:"targets"`
	Percentages           scoring.Triple `json:"percentages"`
	AchievementPercentage int            `json:"achievement_percentage"`
	HasResult             bool           `json:"has_result"`
}

type Attainment struct {
	WeekStart week.Date       `json:"week_start"`
	Rows      []AttainmentRow `json:"rows"`
}

// Attainment scores every active AE for the week containing weekStart. A
// metric whose target that week is zero borrows the most recent non-zero
// target from the preceding weeks of the window.
func (s *Service) Attainment(ctx context.Context, weekStart week.Date) (*Attainment, error) {
	weekStart = week.StartOf(weekStart)

	users, err := s.activeAEs(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	window := week.WeeksEndingAt(weekStart, AttainmentWindow)
	commitments, err := s.commitmentsFor(ctx, ids, window)
	if err != nil {
		return nil, err
	}

	var results []models.WeeklyResult
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).
			Where("user_id IN ? AND week_start_date = ?", ids, weekStart).
			Find(&results).Error; err != nil {
			return nil, fmt.Errorf("loading results: %w", err)
		}
	}
	actuals := make(map[uuid.UUID]scoring.Triple, len(results))
	for i := range results {
		actuals[results[i].UserID] = results[i].Actuals()
	}

	rows := make([]AttainmentRow, 0, len(users))
	for _, u := range users {
		history := make([]scoring.Triple, len(window))
		for i, w := range window {
			history[i] = commitments[u.ID][w]
		}
		targets := scoring.EffectiveTargets(history)
		act, ok := actuals[u.ID]

		rows = append(rows, AttainmentRow{
			UserID:                u.ID,
			FirstName:             u.FirstName,
			LastName:              u.LastName,
			FullName:              u.FullName(),
			Actuals:               act,
			Targets:               targets,
			Percentages:           scoring.Percentages(act, targets),
			AchievementPercentage: scoring.AchievementPercentage(act, targets),
			HasResult:             ok,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return scoring.RankedBefore(
			scoring.Standing{Score: rows[i].AchievementPercentage, LastName: rows[i].LastName, FirstName: rows[i].FirstName},
			scoring.Standing{Score: rows[j].AchievementPercentage, LastName: rows[j].LastName, FirstName: rows[j].FirstName},
		)
	})
	return &Attainment{WeekStart: weekStart, Rows: rows}, nil
}
