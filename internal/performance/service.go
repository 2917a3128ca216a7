// Package performance manages weekly commitments, hand-entered weekly
// results and daily goals, and derives percentages from them.
package performance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/scoring"
	"github.com/hugh/salespulse/internal/week"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 12
	maxHistoryLimit     = 52
	maxWeeklyTarget     = 10000
)

type Service struct {
	db     *gorm.DB
	cal    *week.Calendar
	logger *slog.Logger
}

func NewService(db *gorm.DB, cal *week.Calendar, logger *slog.Logger) *Service {
	return &Service{db: db, cal: cal, logger: logger}
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

// validateTriple rejects negative or absurd values, naming fields with the
// given suffix (calls_target, emails_actual, ...).
func validateTriple(t scoring.Triple, suffix string) error {
	errs := make(map[string]string)
	check := func(name string, v int) {
		if v < 0 || v > maxWeeklyTarget {
			errs[name+"_"+suffix] = fmt.Sprintf("must be between 0 and %d", maxWeeklyTarget)
		}
	}
	check("calls", t.Calls)
	check("emails", t.Emails)
	check("meetings", t.Meetings)
	if len(errs) > 0 {
		return apperr.InvalidFields(errs)
	}
	return nil
}

// commitmentsFor loads the user's commitments for the given weeks keyed by
// week start.
func (s *Service) commitmentsFor(ctx context.Context, userIDs []uuid.UUID, weeks []week.Date) (map[uuid.UUID]map[week.Date]scoring.Triple, error) {
	out := make(map[uuid.UUID]map[week.Date]scoring.Triple)
	if len(userIDs) == 0 || len(weeks) == 0 {
		return out, nil
	}
	var rows []models.WeeklyCommitment
	if err := s.db.WithContext(ctx).
		Where("user_id IN ? AND week_start_date IN ?", userIDs, weeks).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading commitments: %w", err)
	}
	for i := range rows {
		r := &rows[i]
		if out[r.UserID] == nil {
			out[r.UserID] = make(map[week.Date]scoring.Triple)
		}
		out[r.UserID][r.WeekStartDate] = r.Targets()
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
