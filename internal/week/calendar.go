package week

import "time"

// StartOf returns the Monday of the week containing d.
func StartOf(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// PreviousStart returns the Monday of the week before the one containing d.
func PreviousStart(d Date) Date {
	return StartOf(d).AddDays(-7)
}

// IsStart reports whether d is a Monday.
func IsStart(d Date) bool {
	return d.Weekday() == time.Monday
}

// Calendar resolves "today" and week boundaries in a fixed location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, now: time.Now}
}

// WithClock returns a copy of the calendar reading time from now.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	return &Calendar{loc: c.loc, now: now}
}

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) Now() time.Time { return c.now().In(c.loc) }

// DateOf returns the calendar date of t in the calendar's location.
func (c *Calendar) DateOf(t time.Time) Date { return DateOf(t.In(c.loc)) }

// WeekOf returns the week start for t in the calendar's location.
func (c *Calendar) WeekOf(t time.Time) Date { return StartOf(c.DateOf(t)) }

func (c *Calendar) Today() Date { return c.DateOf(c.now()) }

func (c *Calendar) ThisWeek() Date { return StartOf(c.Today()) }

// LastWeek is the most recent fully elapsed week.
func (c *Calendar) LastWeek() Date { return c.ThisWeek().AddDays(-7) }

// PriorWeek is the week before LastWeek.
func (c *Calendar) PriorWeek() Date { return c.ThisWeek().AddDays(-14) }

// WeeksBack returns count consecutive week starts, newest first, beginning
// with LastWeek.
func (c *Calendar) WeeksBack(count int) []Date {
	return WeeksEndingAt(c.LastWeek(), count)
}

// WeeksEndingAt returns count week starts walking backward from latest.
func WeeksEndingAt(latest Date, count int) []Date {
	latest = StartOf(latest)
	weeks := make([]Date, 0, count)
	for i := 0; i < count; i++ {
		weeks = append(weeks, latest.AddDays(-7*i))
	}
	return weeks
}

// Workdays returns Monday through Friday of the week containing d.
func Workdays(d Date) []Date {
	start := StartOf(d)
	days := make([]Date, 5)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return days
}
