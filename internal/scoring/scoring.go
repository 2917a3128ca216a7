// Package scoring holds the arithmetic behind summaries, results and the
// leaderboard. Everything here is pure.
package scoring

import "math"

// Triple is one value per tracked metric.
type Triple struct {
	Calls    int `json:"calls"`
	Emails   int `json:"emails"`
	Meetings int `json:"meetings"`
}

func (t Triple) Sum() int { return t.Calls + t.Emails + t.Meetings }

func (t Triple) Add(o Triple) Triple {
	return Triple{Calls: t.Calls + o.Calls, Emails: t.Emails + o.Emails, Meetings: t.Meetings + o.Meetings}
}

func (t Triple) IsZero() bool { return t.Calls == 0 && t.Emails == 0 && t.Meetings == 0 }

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// Delta compares one metric across two consecutive weeks.
type Delta struct {
	Last  int64    `json:"last"`
	Prior int64    `json:"prior"`
	Delta int64    `json:"delta"`
	Pct   *float64 `json:"pct"`
}

// WeekOverWeek computes last vs prior. Pct is nil when prior is zero,
// otherwise the percentage change rounded to one decimal.
func WeekOverWeek(last, prior int64) Delta {
	d := Delta{Last: last, Prior: prior, Delta: last - prior}
	d.Pct = ChangePct(last, prior)
	return d
}

// ChangePct is the percentage change from prior to current, nil when prior
// is zero.
func ChangePct(current, prior int64) *float64 {
	if prior == 0 {
		return nil
	}
	pct := Round(100*float64(current-prior)/float64(prior), 1)
	return &pct
}

// MeanOfPresent averages the non-nil values, rounded to one decimal. It
// returns nil when every value is nil.
func MeanOfPresent(values []*float64) *float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	mean := Round(sum/float64(n), 1)
	return &mean
}

// Percentage is actual over target as a whole percentage, uncapped. A zero
// target yields 0.
func Percentage(actual, target int) int {
	if target <= 0 {
		return 0
	}
	return int(math.Round(float64(actual) / float64(target) * 100))
}

// Percentages applies Percentage to each metric.
func Percentages(actuals, targets Triple) Triple {
	return Triple{
		Calls:    Percentage(actuals.Calls, targets.Calls),
		Emails:   Percentage(actuals.Emails, targets.Emails),
		Meetings: Percentage(actuals.Meetings, targets.Meetings),
	}
}

// OverallPercentage pools the metrics: total actual over total target.
// Used for an individual's weekly result.
func OverallPercentage(actuals, targets Triple) int {
	return Percentage(actuals.Sum(), targets.Sum())
}

// cappedRatio is min(actual/target, 1) * 100, or 0 for a zero target.
func cappedRatio(actual, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(float64(actual)/float64(target), 1) * 100
}

// AchievementPercentage is the leaderboard score: the mean of the three
// capped per-metric ratios, always in [0, 100]. A metric with no target
// contributes 0 and still counts toward the mean of three.
func AchievementPercentage(actuals, targets Triple) int {
	sum := cappedRatio(actuals.Calls, targets.Calls) +
		cappedRatio(actuals.Emails, targets.Emails) +
		cappedRatio(actuals.Meetings, targets.Meetings)
	return int(math.Round(sum / 3))
}

// DailyAverage splits a weekly target across five workdays, rounding up.
func DailyAverage(target int) int {
	if target <= 0 {
		return 0
	}
	return (target + 4) / 5
}

// DailyAverages applies DailyAverage to each metric.
func DailyAverages(targets Triple) Triple {
	return Triple{
		Calls:    DailyAverage(targets.Calls),
		Emails:   DailyAverage(targets.Emails),
		Meetings: DailyAverage(targets.Meetings),
	}
}

// EffectiveTargets resolves per-metric targets from a history ordered
// newest first. The first entry is the week being scored; a metric whose
// target there is zero falls back to the most recent non-zero target
// further down the history.
func EffectiveTargets(history []Triple) Triple {
	var out Triple
	pick := func(get func(Triple) int) int {
		for _, h := range history {
			if v := get(h); v > 0 {
				return v
			}
		}
		return 0
	}
	out.Calls = pick(func(t Triple) int { return t.Calls })
	out.Emails = pick(func(t Triple) int { return t.Emails })
	out.Meetings = pick(func(t Triple) int { return t.Meetings })
	return out
}

// Standing is one ranked row.
type Standing struct {
	Score     int
	LastName  string
	FirstName string
}

// RankedBefore orders by score descending, then last name, then first name.
func RankedBefore(a, b Standing) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.LastName != b.LastName {
		return a.LastName < b.LastName
	}
	return a.FirstName < b.FirstName
}
