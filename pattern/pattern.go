// Package pattern implements the pure recurrence algebra (component C2):
// thirteen recurrence forms plus union/except, expanded into a sorted,
// duplicate-free set of candidate dates over a half-open range.
package pattern

import (
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/errs"
)

// Pattern is a tagged union over the recurrence forms. Implemented as an
// interface with one concrete type per variant rather than a class
// hierarchy, per the engine's sum-type convention.
type Pattern interface {
	isPattern()
}

type Daily struct{}

type EveryNDays struct{ N int }

// Weekly recurs on seriesStart's weekday. It takes no parameter in the
// core algebra; the exchange layer (pattern.FromJSON) translates an
// explicit override into EveryNWeeks{N:1}.
type Weekly struct{}

// EveryNWeeks recurs every N weeks on Weekday. A nil Weekday defaults to
// dayOfWeek(seriesStart), resolved at expansion time.
type EveryNWeeks struct {
	N       int
	Weekday *calendar.Weekday
}

type Monthly struct{ Day int }

type LastDayOfMonth struct{}

type Yearly struct {
	Month int
	Day   int
}

type Weekdays struct{ Days []calendar.Weekday }

type WeekdaysOnly struct{}

type WeekendsOnly struct{}

type NthWeekdayOfMonth struct {
	N       int
	Weekday calendar.Weekday
}

type LastWeekdayOfMonth struct{ Weekday calendar.Weekday }

type NthToLastWeekdayOfMonth struct {
	N       int
	Weekday calendar.Weekday
}

type Union struct{ Patterns []Pattern }

type Except struct {
	Base       Pattern
	Exceptions []Pattern
}

func (Daily) isPattern()                   {}
func (EveryNDays) isPattern()               {}
func (Weekly) isPattern()                   {}
func (EveryNWeeks) isPattern()              {}
func (Monthly) isPattern()                  {}
func (LastDayOfMonth) isPattern()           {}
func (Yearly) isPattern()                   {}
func (Weekdays) isPattern()                 {}
func (WeekdaysOnly) isPattern()             {}
func (WeekendsOnly) isPattern()             {}
func (NthWeekdayOfMonth) isPattern()        {}
func (LastWeekdayOfMonth) isPattern()       {}
func (NthToLastWeekdayOfMonth) isPattern()  {}
func (Union) isPattern()                    {}
func (Except) isPattern()                   {}

// NewEveryNDays validates n >= 1.
func NewEveryNDays(n int) (EveryNDays, error) {
	if n < 1 {
		return EveryNDays{}, errs.InvalidPattern("everyNDays: n must be >= 1, got %d", n)
	}
	return EveryNDays{N: n}, nil
}

// NewEveryNWeeks validates n >= 1.
func NewEveryNWeeks(n int, weekday *calendar.Weekday) (EveryNWeeks, error) {
	if n < 1 {
		return EveryNWeeks{}, errs.InvalidPattern("everyNWeeks: n must be >= 1, got %d", n)
	}
	return EveryNWeeks{N: n, Weekday: weekday}, nil
}

// NewMonthly validates day in 1..31.
func NewMonthly(day int) (Monthly, error) {
	if day < 1 || day > 31 {
		return Monthly{}, errs.InvalidPattern("monthly: day must be 1..31, got %d", day)
	}
	return Monthly{Day: day}, nil
}

// NewYearly validates month in 1..12 and day in 1..31.
func NewYearly(month, day int) (Yearly, error) {
	if month < 1 || month > 12 {
		return Yearly{}, errs.InvalidPattern("yearly: month must be 1..12, got %d", month)
	}
	if day < 1 || day > 31 {
		return Yearly{}, errs.InvalidPattern("yearly: day must be 1..31, got %d", day)
	}
	return Yearly{Month: month, Day: day}, nil
}

// NewWeekdays validates the day set is non-empty.
func NewWeekdays(days []calendar.Weekday) (Weekdays, error) {
	if len(days) == 0 {
		return Weekdays{}, errs.InvalidPattern("weekdays: day set must not be empty")
	}
	cp := make([]calendar.Weekday, len(days))
	copy(cp, days)
	return Weekdays{Days: cp}, nil
}

// NewNthWeekdayOfMonth validates n in 1..5.
func NewNthWeekdayOfMonth(n int, w calendar.Weekday) (NthWeekdayOfMonth, error) {
	if n < 1 || n > 5 {
		return NthWeekdayOfMonth{}, errs.InvalidPattern("nthWeekdayOfMonth: n must be 1..5, got %d", n)
	}
	return NthWeekdayOfMonth{N: n, Weekday: w}, nil
}

// NewNthToLastWeekdayOfMonth validates n in 1..5.
func NewNthToLastWeekdayOfMonth(n int, w calendar.Weekday) (NthToLastWeekdayOfMonth, error) {
	if n < 1 || n > 5 {
		return NthToLastWeekdayOfMonth{}, errs.InvalidPattern("nthToLastWeekdayOfMonth: n must be 1..5, got %d", n)
	}
	return NthToLastWeekdayOfMonth{N: n, Weekday: w}, nil
}

// Range is a half-open date interval [Start, End).
type Range struct {
	Start calendar.LocalDate
	End   calendar.LocalDate
}

// Options configures Expand.
type Options struct {
	Count *int // if set, take only the first Count dates in ascending order
}

// Expand produces the ordered, duplicate-free set of candidate dates for
// pattern p within range, bounded below by seriesStart. End is exclusive.
func Expand(p Pattern, r Range, seriesStart calendar.LocalDate, opts Options) ([]calendar.LocalDate, error) {
	if r.Start.After(r.End) {
		return nil, errs.InvalidRange("range.start %v is after range.end %v", r.Start, r.End)
	}

	dates, err := expandUnbounded(p, r, seriesStart)
	if err != nil {
		return nil, err
	}

	out := dates[:0:0]
	for _, d := range dates {
		if d.Before(seriesStart) {
			continue
		}
		if d.Before(r.Start) || !d.Before(r.End) {
			continue
		}
		out = append(out, d)
	}
	out = dedupeSorted(out)

	if opts.Count != nil && len(out) > *opts.Count {
		out = out[:*opts.Count]
	}
	return out, nil
}

func dedupeSorted(dates []calendar.LocalDate) []calendar.LocalDate {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := dates[:0:0]
	for i, d := range dates {
		if i == 0 || d.Compare(dates[i-1]) != 0 {
			out = append(out, d)
		}
	}
	return out
}

// expandUnbounded expands p over [r.Start, r.End) without widening the
// range; some forms (e.g. yearly) may produce dates outside it, and Expand's
// final clip removes those.
func expandUnbounded(p Pattern, r Range, seriesStart calendar.LocalDate) ([]calendar.LocalDate, error) {
	switch pat := p.(type) {
	case Daily:
		return everyDateInRange(r, func(calendar.LocalDate) bool { return true }), nil

	case EveryNDays:
		if pat.N < 1 {
			return nil, errs.InvalidPattern("everyNDays: n must be >= 1, got %d", pat.N)
		}
		return everyDateInRange(r, func(d calendar.LocalDate) bool {
			delta := calendar.DaysBetween(seriesStart, d)
			return delta >= 0 && delta%pat.N == 0
		}), nil

	case Weekly:
		target := calendar.DayOfWeek(seriesStart)
		return everyDateInRange(r, func(d calendar.LocalDate) bool {
			return calendar.DayOfWeek(d) == target
		}), nil

	case EveryNWeeks:
		if pat.N < 1 {
			return nil, errs.InvalidPattern("everyNWeeks: n must be >= 1, got %d", pat.N)
		}
		weekday := calendar.DayOfWeek(seriesStart)
		if pat.Weekday != nil {
			weekday = *pat.Weekday
		}
		anchor := firstWeekdayOnOrAfter(seriesStart, weekday)
		step := pat.N * 7
		if anchor.Before(r.Start) {
			gap := calendar.DaysBetween(anchor, r.Start)
			steps := (gap + step - 1) / step
			anchor = calendar.AddDays(anchor, steps*step)
		}
		var out []calendar.LocalDate
		for d := anchor; d.Before(r.End); d = calendar.AddDays(d, step) {
			if !d.Before(r.Start) {
				out = append(out, d)
			}
		}
		return out, nil

	case Monthly:
		return monthlyDates(r, func(y, m int) (calendar.LocalDate, bool) {
			if pat.Day > calendar.DaysInMonth(y, m) {
				return calendar.LocalDate{}, false
			}
			d, _ := calendar.NewDate(y, m, pat.Day)
			return d, true
		}), nil

	case LastDayOfMonth:
		return monthlyDates(r, func(y, m int) (calendar.LocalDate, bool) {
			d, _ := calendar.NewDate(y, m, calendar.DaysInMonth(y, m))
			return d, true
		}), nil

	case Yearly:
		return yearlyDates(r, pat.Month, pat.Day), nil

	case Weekdays:
		if len(pat.Days) == 0 {
			return nil, errs.InvalidPattern("weekdays: day set must not be empty")
		}
		set := weekdaySet(pat.Days)
		return everyDateInRange(r, func(d calendar.LocalDate) bool {
			return set[calendar.DayOfWeek(d)]
		}), nil

	case WeekdaysOnly:
		return everyDateInRange(r, func(d calendar.LocalDate) bool {
			w := calendar.DayOfWeek(d)
			return w != calendar.Sunday && w != calendar.Saturday
		}), nil

	case WeekendsOnly:
		return everyDateInRange(r, func(d calendar.LocalDate) bool {
			w := calendar.DayOfWeek(d)
			return w == calendar.Sunday || w == calendar.Saturday
		}), nil

	case NthWeekdayOfMonth:
		if pat.N < 1 || pat.N > 5 {
			return nil, errs.InvalidPattern("nthWeekdayOfMonth: n must be 1..5, got %d", pat.N)
		}
		return monthlyDates(r, func(y, m int) (calendar.LocalDate, bool) {
			return nthWeekdayOfMonth(y, m, pat.N, pat.Weekday)
		}), nil

	case LastWeekdayOfMonth:
		return monthlyDates(r, func(y, m int) (calendar.LocalDate, bool) {
			return lastWeekdayOfMonth(y, m, pat.Weekday)
		}), nil

	case NthToLastWeekdayOfMonth:
		if pat.N < 1 || pat.N > 5 {
			return nil, errs.InvalidPattern("nthToLastWeekdayOfMonth: n must be 1..5, got %d", pat.N)
		}
		return monthlyDates(r, func(y, m int) (calendar.LocalDate, bool) {
			return nthToLastWeekdayOfMonth(y, m, pat.N, pat.Weekday)
		}), nil

	case Union:
		var all []calendar.LocalDate
		for _, sub := range pat.Patterns {
			d, err := expandUnbounded(sub, r, seriesStart)
			if err != nil {
				return nil, err
			}
			all = append(all, d...)
		}
		return all, nil

	case Except:
		base, err := expandUnbounded(pat.Base, r, seriesStart)
		if err != nil {
			return nil, err
		}
		excluded := map[calendar.LocalDate]bool{}
		for _, sub := range pat.Exceptions {
			d, err := expandUnbounded(sub, r, seriesStart)
			if err != nil {
				return nil, err
			}
			for _, dd := range d {
				excluded[dd] = true
			}
		}
		out := base[:0:0]
		for _, d := range base {
			if !excluded[d] {
				out = append(out, d)
			}
		}
		return out, nil

	default:
		return nil, errs.InvalidPattern("unrecognized pattern type %T", p)
	}
}

func everyDateInRange(r Range, keep func(calendar.LocalDate) bool) []calendar.LocalDate {
	var out []calendar.LocalDate
	for d := r.Start; d.Before(r.End); d = calendar.AddDays(d, 1) {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// monthlyDates iterates every calendar month that intersects r and asks
// build to produce (at most) one date for that month.
func monthlyDates(r Range, build func(y, m int) (calendar.LocalDate, bool)) []calendar.LocalDate {
	var out []calendar.LocalDate
	y, m := r.Start.Year, r.Start.Month
	for {
		first := calendar.LocalDate{Year: y, Month: m, Day: 1}
		if !first.Before(r.End) {
			break
		}
		if d, ok := build(y, m); ok {
			out = append(out, d)
		}
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return out
}

func yearlyDates(r Range, month, day int) []calendar.LocalDate {
	var out []calendar.LocalDate
	for y := r.Start.Year; y <= r.End.Year; y++ {
		if day > calendar.DaysInMonth(y, month) {
			continue
		}
		d, _ := calendar.NewDate(y, month, day)
		out = append(out, d)
	}
	return out
}

func weekdaySet(days []calendar.Weekday) map[calendar.Weekday]bool {
	set := make(map[calendar.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}

func firstWeekdayOnOrAfter(d calendar.LocalDate, w calendar.Weekday) calendar.LocalDate {
	delta := (int(w) - int(calendar.DayOfWeek(d)) + 7) % 7
	return calendar.AddDays(d, delta)
}

func nthWeekdayOfMonth(y, m, n int, w calendar.Weekday) (calendar.LocalDate, bool) {
	first := calendar.LocalDate{Year: y, Month: m, Day: 1}
	firstOccurrence := firstWeekdayOnOrAfter(first, w)
	candidate := calendar.AddDays(firstOccurrence, (n-1)*7)
	if candidate.Month != m || candidate.Year != y {
		return calendar.LocalDate{}, false
	}
	return candidate, true
}

func lastWeekdayOfMonth(y, m int, w calendar.Weekday) (calendar.LocalDate, bool) {
	last := calendar.LocalDate{Year: y, Month: m, Day: calendar.DaysInMonth(y, m)}
	delta := (int(calendar.DayOfWeek(last)) - int(w) + 7) % 7
	return calendar.AddDays(last, -delta), true
}

func nthToLastWeekdayOfMonth(y, m, n int, w calendar.Weekday) (calendar.LocalDate, bool) {
	last, _ := lastWeekdayOfMonth(y, m, w)
	candidate := calendar.AddDays(last, -(n-1)*7)
	if candidate.Month != m || candidate.Year != y {
		return calendar.LocalDate{}, false
	}
	return candidate, true
}
