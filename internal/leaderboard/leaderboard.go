// Package leaderboard ranks active AEs by weekly achievement against their
// commitments, using hand-entered results as actuals.
package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/scoring"
	"github.com/hugh/salespulse/internal/week"
	"gorm.io/gorm"
)

const (
	DefaultHistoryWeeks = 4
	MaxHistoryWeeks     = 52
	DefaultTopN         = 3
	MaxTopN             = 50
)

type Metric string

const (
	MetricCalls    Metric = "calls"
	MetricEmails   Metric = "emails"
	MetricMeetings Metric = "meetings"
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricCalls, MetricEmails, MetricMeetings:
		return m, nil
	}
	return "", apperr.Invalid("metric", "metric must be one of calls, emails, meetings")
}

func (m Metric) of(t scoring.Triple) int {
	switch m {
	case MetricEmails:
		return t.Emails
	case MetricMeetings:
		return t.Meetings
	default:
		return t.Calls
	}
}

type Service struct {
	db     *gorm.DB
	cal    *week.Calendar
	logger *slog.Logger
}

func NewService(db *gorm.DB, cal *week.Calendar, logger *slog.Logger) *Service {
	return &Service{db: db, cal: cal, logger: logger}
}

// Entry is one AE's standing for a week. Missing results or commitments
// read as zero.
type Entry struct {
	Rank                  int            `json:"rank"`
	UserID                uuid.UUID      `json:"user_id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	FullName              string         `json:"full_name"`
	Actuals               scoring.Triple `json:"actuals"`
	Targets               scoring.Triple `json:"targets"`
	AchievementPercentage int            `json:"achievement_percentage"`
	HasData               bool           `json:"has_data"`
}

type TopEntry struct {
	UserID    uuid.UUID `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Value     int       `json:"value"`
}

type Board struct {
	WeekStart         week.Date  `json:"week_start"`
	Entries           []Entry    `json:"leaderboard"`
	TopCallers        []TopEntry `json:"top_callers"`
	TopMeetingBookers []TopEntry `json:"top_meeting_bookers"`
}

// resolveWeek defaults to the last fully elapsed week and snaps any date to
// its Monday.
func (s *Service) resolveWeek(weekStart week.Date) week.Date {
	if weekStart.IsZero() {
		return s.cal.LastWeek()
	}
	return week.StartOf(weekStart)
}

// weekData is everything scored for one week, keyed by user.
type weekData struct {
	results     map[uuid.UUID]scoring.Triple
	commitments map[uuid.UUID]scoring.Triple
}

func (s *Service) loadWeeks(ctx context.Context, weeks []week.Date) (map[week.Date]*weekData, error) {
	out := make(map[week.Date]*weekData, len(weeks))
	for _, w := range weeks {
		out[w] = &weekData{
			results:     make(map[uuid.UUID]scoring.Triple),
			commitments: make(map[uuid.UUID]scoring.Triple),
		}
	}
	if len(weeks) == 0 {
		return out, nil
	}

	var results []models.WeeklyResult
	if err := s.db.WithContext(ctx).Where("week_start_date IN ?", weeks).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	for i := range results {
		if d, ok := out[results[i].WeekStartDate]; ok {
			d.results[results[i].UserID] = results[i].Actuals()
		}
	}

	var commitments []models.WeeklyCommitment
	if err := s.db.WithContext(ctx).Where("week_start_date IN ?", weeks).Find(&commitments).Error; err != nil {
		return nil, fmt.Errorf("loading commitments: %w", err)
	}
	for i := range commitments {
		if d, ok := out[commitments[i].WeekStartDate]; ok {
			d.commitments[commitments[i].UserID] = commitments[i].Targets()
		}
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

func newEntry(u models.User, actuals, targets scoring.Triple) Entry {
	return Entry{
		UserID:                u.ID,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		FullName:              u.FullName(),
		Actuals:               actuals,
		Targets:               targets,
		AchievementPercentage: scoring.AchievementPercentage(actuals, targets),
		HasData:               !targets.IsZero(),
	}
}

func rank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return scoring.RankedBefore(
			scoring.Standing{Score: entries[i].AchievementPercentage, LastName: entries[i].LastName, FirstName: entries[i].FirstName},
			scoring.Standing{Score: entries[j].AchievementPercentage, LastName: entries[j].LastName, FirstName: entries[j].FirstName},
		)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// Leaderboard ranks every active AE for the week. A zero weekStart means
// last week.
func (s *Service) Leaderboard(ctx context.Context, weekStart week.Date) (*Board, error) {
	weekStart = s.resolveWeek(weekStart)

	users, err := s.activeAEs(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.loadWeeks(ctx, []week.Date{weekStart})
	if err != nil {
		return nil, err
	}
	d := data[weekStart]

	entries := make([]Entry, 0, len(users))
	for _, u := range users {
		entries = append(entries, newEntry(u, d.results[u.ID], d.commitments[u.ID]))
	}
	rank(entries)

	return &Board{
		WeekStart:         weekStart,
		Entries:           entries,
		TopCallers:        top(users, d, MetricCalls, DefaultTopN),
		TopMeetingBookers: top(users, d, MetricMeetings, DefaultTopN),
	}, nil
}

// Top returns up to n AEs with a result that week, highest metric first.
func (s *Service) Top(ctx context.Context, metric Metric, weekStart week.Date, n int) ([]TopEntry, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	if n > MaxTopN {
		n = MaxTopN
	}
	weekStart = s.resolveWeek(weekStart)

	users, err := s.activeAEs(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.loadWeeks(ctx, []week.Date{weekStart})
	if err != nil {
		return nil, err
	}
	return top(users, data[weekStart], metric, n), nil
}

// top expects users sorted by last then first name; the stable sort keeps
// that order among equal values.
func top(users []models.User, d *weekData, metric Metric, n int) []TopEntry {
	out := make([]TopEntry, 0, len(users))
	for _, u := range users {
		actuals, ok := d.results[u.ID]
		if !ok {
			continue
		}
		out = append(out, TopEntry{
			UserID:    u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			FullName:  u.FullName(),
			Value:     metric.of(actuals),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type Summary struct {
	WeekStart          week.Date      `json:"week_start"`
	TotalAEs           int            `json:"total_aes"`
	AEsWithCommitments int            `json:"aes_with_commitments"`
	AEsWithResults     int            `json:"aes_with_results"`
	Targets            scoring.Triple `json:"targets"`
	Actuals            scoring.Triple `json:"actuals"`
	Percentages        scoring.Triple `json:"percentages"`
}

// Summary totals targets and actuals across active AEs for the week.
// Percentages pool each metric across the team.
func (s *Service) Summary(ctx context.Context, weekStart week.Date) (*Summary, error) {
	weekStart = s.resolveWeek(weekStart)

	users, err := s.activeAEs(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.loadWeeks(ctx, []week.Date{weekStart})
	if err != nil {
		return nil, err
	}
	d := data[weekStart]

	sum := &Summary{WeekStart: weekStart, TotalAEs: len(users)}
	for _, u := range users {
		if t, ok := d.commitments[u.ID]; ok {
			sum.AEsWithCommitments++
			sum.Targets = sum.Targets.Add(t)
		}
		if a, ok := d.results[u.ID]; ok {
			sum.AEsWithResults++
			sum.Actuals = sum.Actuals.Add(a)
		}
	}
	sum.Percentages = scoring.Percentages(sum.Actuals, sum.Targets)
	return sum, nil
}

type HistoryWeek struct {
	WeekStart week.Date `json:"week_start"`
	AEs       []Entry   `json:"aes"`
}

// History returns count weeks walking back from last week, newest first.
// Each week lists the active AEs who entered a result, by name.
func (s *Service) History(ctx context.Context, count int) ([]HistoryWeek, error) {
	if count <= 0 {
		count = DefaultHistoryWeeks
	}
	if count > MaxHistoryWeeks {
		return nil, apperr.Invalid("weeks", fmt.Sprintf("weeks must be at most %d", MaxHistoryWeeks))
	}

	weeks := s.cal.WeeksBack(count)
	users, err := s.activeAEs(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.loadWeeks(ctx, weeks)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryWeek, 0, len(weeks))
	for _, w := range weeks {
		d := data[w]
		aes := make([]Entry, 0)
		for _, u := range users {
			actuals, ok := d.results[u.ID]
			if !ok {
				continue
			}
			aes = append(aes, newEntry(u, actuals, d.commitments[u.ID]))
		}
		history = append(history, HistoryWeek{WeekStart: w, AEs: aes})
	}
	return history, nil
}

type WeekRange struct {
	Count    int        `json:"count"`
	Earliest *week.Date `json:"earliest"`
	Latest   *week.Date `json:"latest"`
}

type WeeksAvailable struct {
	Results     WeekRange `json:"results_weeks"`
	Commitments WeekRange `json:"commitments_weeks"`
	Both        int       `json:"both_weeks"`
}

// WeeksAvailable describes which weeks have results, commitments or both.
func (s *Service) WeeksAvailable(ctx context.Context) (*WeeksAvailable, error) {
	resultWeeks, err := s.distinctWeeks(ctx, &models.WeeklyResult{})
	if err != nil {
		return nil, fmt.Errorf("listing result weeks: %w", err)
	}
	commitmentWeeks, err := s.distinctWeeks(ctx, &models.WeeklyCommitment{})
	if err != nil {
		return nil, fmt.Errorf("listing commitment weeks: %w", err)
	}

	inCommitments := make(map[week.Date]bool, len(commitmentWeeks))
	for _, w := range commitmentWeeks {
		inCommitments[w] = true
	}
	both := 0
	for _, w := range resultWeeks {
		if inCommitments[w] {
			both++
		}
	}

	return &WeeksAvailable{
		Results:     rangeOf(resultWeeks),
		Commitments: rangeOf(commitmentWeeks),
		Both:        both,
	}, nil
}

func (s *Service) distinctWeeks(ctx context.Context, model interface{}) ([]week.Date, error) {
	var rows []struct {
		WeekStartDate week.Date
	}
	if err := s.db.WithContext(ctx).Model(model).
		Distinct("week_start_date").
		Order("week_start_date").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	weeks := make([]week.Date, len(rows))
	for i, r := range rows {
		weeks[i] = r.WeekStartDate
	}
	return weeks, nil
}

// rangeOf expects weeks sorted ascending.
func rangeOf(weeks []week.Date) WeekRange {
	r := WeekRange{Count: len(weeks)}
	if len(weeks) > 0 {
		first, last := weeks[0], weeks[len(weeks)-1]
		r.Earliest = &first
		r.Latest = &last
	}
	return r
}
